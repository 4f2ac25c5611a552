// ABOUTME: Playback error values
// ABOUTME: Sentinel errors surfaced by the controller and sessions
package playback

import (
	"errors"

	"github.com/Resonate-Protocol/cadence/pkg/audio/decode"
)

var (
	// ErrInvalidPath is returned by Play for an empty or blank path
	ErrInvalidPath = errors.New("invalid file path")

	// ErrUnreadableFile wraps failures to open or decode the source
	ErrUnreadableFile = decode.ErrUnreadableFile

	// ErrDeviceOpenFailure wraps failures to open or start the output stream
	ErrDeviceOpenFailure = errors.New("failed to open audio output")

	// ErrQueueUnderrun means the real-time sink found the queue empty
	ErrQueueUnderrun = errors.New("audio queue underrun")

	// ErrDeviceUnderflow means the device reported an output underflow
	ErrDeviceUnderflow = errors.New("audio device underflow")

	// ErrProducerPutTimeout means the sink stopped draining the queue in time
	ErrProducerPutTimeout = errors.New("timed out queueing audio block")

	// ErrPreviousSessionStillStopping means a session did not exit within the stop timeout
	ErrPreviousSessionStillStopping = errors.New("previous playback session still stopping")

	errPutInterrupted = errors.New("queue put interrupted")
)
