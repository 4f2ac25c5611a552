// ABOUTME: Audio output device interfaces
// ABOUTME: Callback-driven streams shared by every playback backend
package output

import (
	"errors"
	"fmt"
)

// ErrDeviceUnavailable reports a device id that does not resolve to an output
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// StatusFlags carries conditions the device observed before a callback
type StatusFlags uint32

const (
	// OutputUnderflow means the device ran out of data since the last callback
	OutputUnderflow StatusFlags = 1 << iota
)

// Result tells the device what to do after a callback
type Result int

const (
	// Continue keeps the stream running
	Continue Result = iota
	// Complete plays out the block just produced, then finishes the stream
	Complete
	// Abort finishes the stream immediately
	Abort
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Complete:
		return "complete"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Callback fills out with one block of interleaved samples. It runs in the
// device's real-time context and must not block or allocate.
type Callback func(out []int32, status StatusFlags) Result

// StreamConfig selects a device and the block geometry of a stream
type StreamConfig struct {
	DeviceID   string // empty selects the system default
	SampleRate int
	Channels   int
	BlockSize  int // frames per callback
}

func (c StreamConfig) validate() error {
	if c.SampleRate <= 0 || c.Channels <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("invalid stream config: %dHz, %d channels, %d frames per block",
			c.SampleRate, c.Channels, c.BlockSize)
	}
	return nil
}

// Device opens output streams
type Device interface {
	// Open creates a stopped stream. onFinished runs once, off the
	// real-time context, after the callback returned Complete (and that
	// block was rendered) or Abort.
	Open(cfg StreamConfig, cb Callback, onFinished func()) (Stream, error)

	// Close releases backend resources
	Close() error
}

// Stream is one open output stream
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// FixedFormat is implemented by devices that only play one sample rate and
// channel count per process
type FixedFormat interface {
	Format() (sampleRate, channels int)
}

// DeviceInfo describes an output device
type DeviceInfo struct {
	ID      string
	Name    string
	Default bool
}

// Lister is implemented by devices that can enumerate outputs
type Lister interface {
	Devices() ([]DeviceInfo, error)
}

// watchFinished forwards the renderer's finish signal to onFinished until
// the stream is closed
func watchFinished(r *Renderer, closed <-chan struct{}, onFinished func()) {
	if onFinished == nil {
		return
	}
	go func() {
		select {
		case <-r.Finished():
			onFinished()
		case <-closed:
		}
	}()
}
