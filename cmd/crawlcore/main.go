// crawlcore runs a turn-based dungeon crawl from Lua game data.
// Usage: crawlcore [flags] [game_directory]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sagikazarmark/slog-shim"
	"github.com/spf13/pflag"

	"github.com/nathoo/crawlcore/cli"
	"github.com/nathoo/crawlcore/config"
	"github.com/nathoo/crawlcore/engine"
	"github.com/nathoo/crawlcore/loader"
	"github.com/nathoo/crawlcore/logging"
	"github.com/nathoo/crawlcore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("crawlcore", pflag.ContinueOnError)
	showVersion := flags.Bool("version", false, "print version and exit")
	configPath := flags.String("config", "", "config file (default ~/.crawlcore/config.yaml)")
	flags.String("data_dir", "", "game directory with Lua files")
	flags.String("save_dir", "", "directory for save files")
	flags.Int64("seed", 0, "override the game's RNG seed")
	flags.Bool("plain", false, "line-mode interface instead of the TUI")
	flags.Bool("trace", false, "print pending commands after every step")
	flags.String("script", "", "play key lines from a file (implies --plain)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: crawlcore [flags] [game_directory]\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("crawlcore %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}
	if flags.NArg() > 0 {
		if err := flags.Set("data_dir", flags.Arg(0)); err != nil {
			return err
		}
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defs, err := loader.Load(cfg.DataDir, loader.WithLogger(log))
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}
	log.Info("game loaded", "title", defs.Game.Title, "dir", cfg.DataDir)

	eng, err := engine.New(defs, engine.WithLogger(log), engine.WithSeed(cfg.Seed))
	if err != nil {
		return err
	}

	// Script mode: read the file, force plain, echo key lines.
	if cfg.Script != "" {
		f, err := os.Open(cfg.Script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := newCLI(eng, cfg)
		c.In = f
		c.EchoInput = true
		return c.Run(ctx)
	}

	// Use plain CLI if --plain or stdout is not a terminal.
	if cfg.Plain || !isTerminal() {
		return newCLI(eng, cfg).Run(ctx)
	}

	return tui.Run(ctx, eng, cfg.SaveDir, cfg.Trace)
}

func newCLI(eng *engine.Engine, cfg *config.Config) *cli.CLI {
	c := cli.New(eng)
	c.Trace = cfg.Trace
	if cfg.SaveDir != "" {
		c.SaveDir = cfg.SaveDir
	}
	return c
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
