// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates the playback controller, playlist, TUI and remote control
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/Resonate-Protocol/cadence/internal/discovery"
	"github.com/Resonate-Protocol/cadence/internal/remote"
	"github.com/Resonate-Protocol/cadence/internal/ui"
	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
	"github.com/Resonate-Protocol/cadence/pkg/playback"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// Config holds player configuration
type Config struct {
	Name     string
	Files    []string
	Playback playback.Config

	UI        bool
	ExitAtEnd bool // return from Run once the playlist has played out

	Remote     bool
	RemotePort int
	MDNS       bool

	StatsInterval time.Duration
}

// Player represents the main player application
type Player struct {
	config     Config
	controller *playback.Controller
	playlist   *Playlist

	remote    *remote.Server
	discovery *discovery.Manager
	tuiProg   *tea.Program
	control   *ui.Control

	finished chan struct{}
}

// New creates a player for device. Notification callbacks in
// config.Playback are replaced by the player's own.
func New(config Config, device output.Device) *Player {
	if config.StatsInterval <= 0 {
		config.StatsInterval = 500 * time.Millisecond
	}

	p := &Player{
		config:   config,
		playlist: NewPlaylist(config.Files),
		finished: make(chan struct{}, 1),
	}

	pc := config.Playback
	pc.OnTrackChanged = p.onTrackChanged
	pc.OnTrackFinished = p.onTrackFinished
	pc.OnStateChange = p.onStateChange
	pc.OnError = p.onError
	p.controller = playback.NewController(device, pc)

	if config.Remote {
		p.remote = remote.NewServer(remote.Config{
			Port: config.RemotePort,
			Name: config.Name,
		}, p)
	}
	return p
}

// Controller returns the underlying playback controller
func (p *Player) Controller() *playback.Controller {
	return p.controller
}

// Run plays the playlist until ctx is cancelled, the user quits the TUI,
// or, with ExitAtEnd, the playlist has played out.
func (p *Player) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if p.config.UI {
		p.control = ui.NewControl()
		prog, err := ui.Run(p.control)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		p.tuiProg = prog
		go func() {
			if _, err := prog.Run(); err != nil {
				log.Error("TUI failed", "err", err)
			}
			cancel()
		}()
		go p.handleControls(ctx)
	}

	if p.remote != nil {
		if err := p.remote.Start(); err != nil {
			p.shutdown()
			return fmt.Errorf("failed to start remote control: %w", err)
		}
		p.updateTUI(ui.StatusMsg{RemoteAddr: p.remote.Addr()})

		if p.config.MDNS {
			p.discovery = discovery.NewManager(discovery.Config{
				ServiceName: p.config.Name,
				Port:        p.config.RemotePort,
				Path:        remote.Path,
			})
			if err := p.discovery.Advertise(); err != nil {
				log.Warn("mDNS advertisement failed", "err", err)
			}
		}
	}

	go p.statsUpdateLoop(ctx)

	if path, ok := p.playlist.Current(); ok {
		if err := p.playFrom(path); err != nil {
			log.Error("Nothing playable", "err", err)
			if p.config.ExitAtEnd {
				p.shutdown()
				return err
			}
		}
	} else {
		p.signalFinished()
	}

	var quit <-chan ui.QuitMsg
	if p.control != nil {
		quit = p.control.Quit
	}

	select {
	case <-ctx.Done():
		log.Info("Shutdown requested")
	case <-quit:
		log.Info("Received quit signal from TUI")
	case <-p.endOfPlaylist():
		log.Info("Playlist finished")
	}

	p.shutdown()
	return nil
}

func (p *Player) endOfPlaylist() <-chan struct{} {
	if !p.config.ExitAtEnd {
		return nil
	}
	return p.finished
}

func (p *Player) shutdown() {
	if p.discovery != nil {
		p.discovery.Stop()
	}
	if p.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.remote.Stop(ctx); err != nil {
			log.Warn("Remote shutdown error", "err", err)
		}
	}
	if err := p.controller.Close(); err != nil {
		log.Warn("Error closing player", "err", err)
	}
	if p.tuiProg != nil {
		p.tuiProg.Quit()
	}
	log.Info("Player stopped")
}

// playFrom plays path, skipping forward past unreadable entries
func (p *Player) playFrom(path string) error {
	for {
		err := p.controller.Play(path)
		if err == nil || !errors.Is(err, playback.ErrUnreadableFile) {
			return err
		}
		log.Warn("Skipping unreadable track", "path", path, "err", err)
		p.showError(err)

		next, ok := p.playlist.Next()
		if !ok {
			p.signalFinished()
			return err
		}
		path = next
	}
}

// Play starts path, adding it to the playlist if needed. An empty path
// resumes a paused track.
func (p *Player) Play(path string) error {
	if path != "" {
		p.playlist.Select(path)
	}
	return p.controller.Play(path)
}

// Pause pauses playback
func (p *Player) Pause() error {
	return p.controller.Pause()
}

// Resume resumes paused playback
func (p *Player) Resume() error {
	return p.controller.Resume()
}

// Stop stops playback
func (p *Player) Stop() error {
	return p.controller.Stop()
}

// Next plays the next playlist entry
func (p *Player) Next() error {
	path, ok := p.playlist.Next()
	if !ok {
		return ErrPlaylistEnd
	}
	return p.controller.Play(path)
}

// Previous plays the previous playlist entry
func (p *Player) Previous() error {
	path, ok := p.playlist.Previous()
	if !ok {
		return ErrPlaylistEnd
	}
	return p.controller.Play(path)
}

// TogglePause pauses, resumes, or restarts the current entry when stopped
func (p *Player) TogglePause() error {
	switch p.controller.State() {
	case playback.Playing:
		return p.controller.Pause()
	case playback.Paused:
		return p.controller.Resume()
	default:
		return p.Replay()
	}
}

// Replay restarts the current playlist entry
func (p *Player) Replay() error {
	path, ok := p.playlist.Current()
	if !ok {
		return ErrPlaylistEnd
	}
	return p.controller.Play(path)
}

// Status reports the player state for remote clients
func (p *Player) Status() remote.State {
	stats := p.controller.Stats()
	index, total := p.playlist.Position()
	return remote.State{
		State:     stats.State.String(),
		Track:     stats.Track,
		Buffered:  stats.Buffered,
		Capacity:  stats.Capacity,
		Delivered: stats.Delivered,
		Index:     index,
		Total:     total,
	}
}

// handleControls processes commands from the TUI
func (p *Player) handleControls(ctx context.Context) {
	for {
		select {
		case cmd := <-p.control.Commands:
			var err error
			switch cmd {
			case ui.CommandTogglePause:
				err = p.TogglePause()
			case ui.CommandStop:
				err = p.Stop()
			case ui.CommandNext:
				err = p.Next()
			case ui.CommandPrevious:
				err = p.Previous()
			case ui.CommandReplay:
				err = p.Replay()
			}
			if err != nil {
				log.Warn("Command failed", "command", cmd, "err", err)
				p.showError(err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Notification callbacks run in order on the controller's dispatcher

func (p *Player) onTrackChanged(path string) {
	none := ""
	p.updateTUI(ui.StatusMsg{Error: &none})
	if p.remote != nil {
		p.remote.NotifyTrackChanged(path)
	}
}

func (p *Player) onTrackFinished() {
	if p.remote != nil {
		p.remote.NotifyTrackFinished()
	}

	next, ok := p.playlist.Next()
	if !ok {
		p.signalFinished()
		return
	}
	if err := p.playFrom(next); err != nil {
		log.Error("Failed to start next track", "path", next, "err", err)
		p.showError(err)
	}
}

func (p *Player) onStateChange(state playback.State) {
	log.Debug("Playback state", "state", state)
	p.sendStatus()
	if p.remote != nil {
		p.remote.NotifyState()
	}
}

func (p *Player) onError(err error) {
	p.showError(err)
	if p.remote != nil {
		p.remote.NotifyError(err)
	}
}

func (p *Player) signalFinished() {
	select {
	case p.finished <- struct{}{}:
	default:
	}
}

func (p *Player) showError(err error) {
	msg := err.Error()
	p.updateTUI(ui.StatusMsg{Error: &msg})
}

// updateTUI sends msg to the TUI if it is running
func (p *Player) updateTUI(msg ui.StatusMsg) {
	if p.tuiProg != nil {
		p.tuiProg.Send(msg)
	}
}

func (p *Player) sendStatus() {
	stats := p.controller.Stats()
	index, total := p.playlist.Position()
	p.updateTUI(ui.StatusMsg{
		State:      stats.State.String(),
		Track:      stats.Track,
		SessionID:  stats.SessionID,
		Index:      index,
		Total:      total,
		Codec:      stats.Format.Codec,
		SampleRate: stats.Format.SampleRate,
		Channels:   stats.Format.Channels,
		BitDepth:   stats.Format.BitDepth,
		Buffered:   stats.Buffered,
		Capacity:   stats.Capacity,
		Delivered:  stats.Delivered,
	})
}

// statsUpdateLoop periodically updates the TUI with playback statistics
func (p *Player) statsUpdateLoop(ctx context.Context) {
	if p.tuiProg == nil {
		return
	}

	ticker := time.NewTicker(p.config.StatsInterval)
	defer ticker.Stop()

	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	for {
		select {
		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			msg := ui.StatusMsg{
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   m.Alloc,
				MemSys:     m.Sys,
			}
			if p.remote != nil {
				msg.RemoteAddr = p.remote.Addr()
				msg.Clients = p.remote.Clients()
			}
			p.updateTUI(msg)

		case <-ticker.C:
			p.sendStatus()

		case <-ctx.Done():
			return
		}
	}
}
