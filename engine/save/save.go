// Package save implements JSON serialization and deserialization of game state.
package save

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/engine/status"
	"github.com/nathoo/crawlcore/types"
)

// FormatVersion is the save layout written by Save.
const FormatVersion = 1

// ErrVersion is returned for saves written in another layout.
var ErrVersion = errors.New("save: unsupported format version")

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Format      int             `json:"format"`
	Version     string          `json:"version"`
	Game        string          `json:"game"`
	Turn        int             `json:"turn"`
	Player      types.Player    `json:"player"`
	Flags       map[string]bool `json:"flags"`
	Statuses    []status.Active `json:"statuses"`
	RNGSeed     int64           `json:"rng_seed"`
	RNGPosition int64           `json:"rng_position"`
}

// Save serializes game state and the active statuses to JSON bytes.
func Save(s *types.State, defs *state.Defs, statuses []status.Active) ([]byte, error) {
	data := SaveData{
		Format:      FormatVersion,
		Version:     defs.Game.Version,
		Game:        defs.Game.Title,
		Turn:        s.TurnCount,
		Player:      s.Player,
		Flags:       s.Flags,
		Statuses:    statuses,
		RNGSeed:     s.RNGSeed,
		RNGPosition: s.RNGPosition,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Format != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, sd.Format)
	}
	// Ensure collections are never nil after load.
	if sd.Flags == nil {
		sd.Flags = map[string]bool{}
	}
	if sd.Statuses == nil {
		sd.Statuses = []status.Active{}
	}
	return &sd, nil
}

// ApplySave applies loaded save data onto a state. Statuses and the RNG
// are restored by the caller, which owns the driver and the tracker.
func ApplySave(s *types.State, sd *SaveData) {
	s.Player = sd.Player
	s.Flags = sd.Flags
	s.TurnCount = sd.Turn
	s.RNGSeed = sd.RNGSeed
	s.RNGPosition = sd.RNGPosition
	s.Messages = nil
	s.Events = nil
	s.ShowMap = false
	s.Quit = false
}
