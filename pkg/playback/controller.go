// ABOUTME: Playback controller and state machine
// ABOUTME: Serializes play, pause, resume and stop and reports track notifications
package playback

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"github.com/Resonate-Protocol/cadence/pkg/audio/decode"
	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
	"github.com/charmbracelet/log"
)

const (
	DefaultBlockSize        = 2048
	DefaultBufferSize       = 20
	DefaultStopPollInterval = 200 * time.Millisecond
	DefaultStopMaxPolls     = 10
)

// Config holds controller settings and notification callbacks
type Config struct {
	DeviceID string

	// SampleRate and Channels force a stream format; zero plays the
	// source's own format. Devices with a fixed format override both.
	SampleRate int
	Channels   int

	BlockSize  int // frames per device callback
	BufferSize int // queued blocks

	// Stop waits at most StopPollInterval * StopMaxPolls for a session to exit
	StopPollInterval time.Duration
	StopMaxPolls     int

	Opener decode.Opener

	// Notifications run in order on a dedicated goroutine and may call
	// back into the controller.
	OnTrackChanged  func(path string)
	OnTrackFinished func()
	OnStateChange   func(State)
	OnError         func(error)
}

// StopTimeout is the bounded wait for a session to exit
func (c Config) StopTimeout() time.Duration {
	return c.StopPollInterval * time.Duration(c.StopMaxPolls)
}

// Stats describes the controller for status displays
type Stats struct {
	State     State
	Track     string
	SessionID string
	Format    audio.Format
	Buffered  int
	Capacity  int
	Delivered int64
}

// Controller owns one output device and at most one session at a time
type Controller struct {
	device output.Device
	config Config
	state  *stateCell

	notify *dispatcher

	mu         sync.Mutex
	current    *Session
	track      string
	pendingErr error
}

// NewController creates a stopped controller for device
func NewController(device output.Device, config Config) *Controller {
	if config.BlockSize <= 0 {
		config.BlockSize = DefaultBlockSize
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.StopPollInterval <= 0 {
		config.StopPollInterval = DefaultStopPollInterval
	}
	if config.StopMaxPolls <= 0 {
		config.StopMaxPolls = DefaultStopMaxPolls
	}
	if config.Opener == nil {
		config.Opener = decode.Open
	}

	c := &Controller{
		device: device,
		config: config,
		notify: newDispatcher(),
	}
	c.state = newStateCell(c.notifyStateChange)
	return c
}

// Play starts path, replacing any current session. A blank path resumes
// only when paused, like Resume; in any other state it fails with
// ErrInvalidPath and changes nothing.
func (c *Controller) Play(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state.Get() == Paused {
			c.state.CompareAndSet(Paused, Playing)
			return nil
		}
		return ErrInvalidPath
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.startLocked(path); err != nil {
		return err
	}

	log.Info("Track started", "path", path)
	if fn := c.config.OnTrackChanged; fn != nil {
		c.notify.Post(func() { fn(path) })
	}
	return nil
}

func (c *Controller) startLocked(path string) error {
	c.pendingErr = nil
	if _, err := c.retireLocked(); err != nil {
		return err
	}

	src, err := c.config.Opener(path)
	if err != nil {
		if !errors.Is(err, ErrUnreadableFile) {
			err = fmt.Errorf("%w: %w", ErrUnreadableFile, err)
		}
		return err
	}
	if format := src.Format(); format.SampleRate <= 0 || format.Channels <= 0 {
		src.Close()
		return fmt.Errorf("%w: %s: invalid format %dHz/%dch",
			ErrUnreadableFile, path, format.SampleRate, format.Channels)
	}
	src = c.convert(src)

	s, err := newSession(path, src, c.device, c.state, sessionConfig{
		deviceID:   c.config.DeviceID,
		blockSize:  c.config.BlockSize,
		bufferSize: c.config.BufferSize,
	}, c.sessionExited)
	if err != nil {
		src.Close()
		return fmt.Errorf("%w: %w", ErrDeviceOpenFailure, err)
	}

	c.current = s
	c.track = path
	c.state.Set(Playing)
	go s.run()

	log.Debug("Session started", "session", s.ID(), "format", s.Format(),
		"block", c.config.BlockSize, "buffer", c.config.BufferSize)
	return nil
}

// convert adapts src to the device or configured format
func (c *Controller) convert(src decode.Source) decode.Source {
	rate, channels := c.config.SampleRate, c.config.Channels
	if fixed, ok := c.device.(output.FixedFormat); ok {
		rate, channels = fixed.Format()
	}

	format := src.Format()
	if rate <= 0 {
		rate = format.SampleRate
	}
	if channels <= 0 {
		channels = format.Channels
	}
	return decode.Convert(src, rate, channels)
}

// retireLocked stops the current session and waits for it to exit. It
// returns the retired session, or nil if there was none.
func (c *Controller) retireLocked() (*Session, error) {
	s := c.current
	if s == nil {
		return nil, nil
	}

	c.state.Set(Stopped)
	if !s.Wait(c.config.StopTimeout()) {
		log.Warn("Session did not stop in time", "session", s.ID(), "timeout", c.config.StopTimeout())
		return nil, ErrPreviousSessionStillStopping
	}
	c.current = nil
	return s, nil
}

// Resume continues a paused session
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeErrLocked(); err != nil {
		return err
	}
	c.state.CompareAndSet(Paused, Playing)
	return nil
}

// Pause pauses a playing session; in any other state it does nothing
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeErrLocked(); err != nil {
		return err
	}
	c.state.CompareAndSet(Playing, Paused)
	return nil
}

// Stop ends the current session, waiting a bounded time for it to exit
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	retired, err := c.retireLocked()
	if err != nil {
		return err
	}
	c.state.Set(Stopped)

	if pending := c.takeErrLocked(); pending != nil {
		return pending
	}
	if retired != nil {
		return retired.Err()
	}
	return nil
}

// State returns the current playback state
func (c *Controller) State() State {
	return c.state.Get()
}

// Track returns the path of the current or last track
func (c *Controller) Track() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.track
}

// Stats returns a snapshot for status displays
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		State:    c.state.Get(),
		Track:    c.track,
		Capacity: c.config.BufferSize,
	}
	if s := c.current; s != nil {
		stats.SessionID = s.ID()
		stats.Format = s.Format()
		stats.Buffered = s.queue.Len()
		stats.Delivered = s.sink.Delivered()
	}
	return stats
}

// Close stops playback and releases the device. Notifications already
// queued are still delivered.
func (c *Controller) Close() error {
	stopErr := c.Stop()
	if errors.Is(stopErr, ErrPreviousSessionStillStopping) {
		return stopErr
	}
	c.notify.Close()
	return c.device.Close()
}

func (c *Controller) takeErrLocked() error {
	err := c.pendingErr
	c.pendingErr = nil
	return err
}

// sessionExited runs on the producer goroutine after the session exited.
// Sessions the controller already retired report nothing.
func (c *Controller) sessionExited(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := s.Err()
	if c.current != s {
		if err != nil {
			log.Debug("Ignoring error from retired session", "session", s.ID(), "err", err)
		}
		return
	}
	c.current = nil

	switch {
	case err != nil:
		log.Error("Playback stopped", "path", s.Path(), "err", err)
		c.pendingErr = err
		if fn := c.config.OnError; fn != nil {
			c.notify.Post(func() { fn(err) })
		}
	case s.Finished():
		log.Info("Track finished", "path", s.Path())
		if fn := c.config.OnTrackFinished; fn != nil {
			c.notify.Post(fn)
		}
	}
}

func (c *Controller) notifyStateChange(state State) {
	if fn := c.config.OnStateChange; fn != nil {
		c.notify.Post(func() { fn(state) })
	}
}
