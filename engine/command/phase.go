package command

import "fmt"

// Phase is a stage within one turn. Phases run in declaration order.
type Phase int

const (
	StartTurn Phase = iota
	MainTurn
	EndTurn
)

// NumPhases is the number of phases in a turn.
const NumPhases = int(EndTurn) + 1

// Phases lists every phase in execution order.
func Phases() []Phase {
	return []Phase{StartTurn, MainTurn, EndTurn}
}

var phaseNames = map[Phase]string{
	StartTurn: "START_TURN",
	MainTurn:  "MAIN_TURN",
	EndTurn:   "END_TURN",
}

// String returns the phase name, e.g. "MAIN_TURN".
func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	return p >= StartTurn && p <= EndTurn
}

// ParsePhase converts a data-file phase name ("start", "main", "end") to a Phase.
// An empty name means EndTurn, where status countdowns normally live.
func ParsePhase(name string) (Phase, error) {
	switch name {
	case "start", "START_TURN":
		return StartTurn, nil
	case "main", "MAIN_TURN":
		return MainTurn, nil
	case "end", "END_TURN", "":
		return EndTurn, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", name)
	}
}
