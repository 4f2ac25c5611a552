// ABOUTME: Entry point for the cadence audio player
// ABOUTME: Loads configuration, opens the output backend and runs the player
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/cadence/internal/app"
	"github.com/Resonate-Protocol/cadence/internal/config"
	"github.com/Resonate-Protocol/cadence/internal/logging"
	"github.com/Resonate-Protocol/cadence/internal/version"
	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cadence: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	// TUI mode logs only to the file; streaming mode logs to stdout too
	closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File, !cfg.UI.Enabled)
	if err != nil {
		return err
	}
	defer closer.Close()

	files, err := app.ExpandPaths(cfg.Files)
	if err != nil {
		return err
	}
	if len(files) == 0 && !cfg.Remote.Enabled {
		return fmt.Errorf("no files to play (pass files or enable --remote.enabled)")
	}

	name := cfg.PlayerName()
	log.Info("Starting "+version.Product, "software", version.String(), "name", name,
		"backend", cfg.Device.Backend, "tracks", len(files))

	device, err := output.New(cfg.Device.Backend, cfg.OutputOptions())
	if err != nil {
		return fmt.Errorf("failed to open output backend: %w", err)
	}

	player := app.New(app.Config{
		Name:       name,
		Files:      files,
		Playback:   cfg.Playback(),
		UI:         cfg.UI.Enabled,
		ExitAtEnd:  !cfg.UI.Enabled && !cfg.Remote.Enabled,
		Remote:     cfg.Remote.Enabled,
		RemotePort: cfg.Remote.Port,
		MDNS:       cfg.Remote.MDNS,
	}, device)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return player.Run(ctx)
}
