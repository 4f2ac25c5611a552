// ABOUTME: Playback session with its producer goroutine
// ABOUTME: Decodes blocks into the queue and follows pause, resume and stop requests
package playback

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"github.com/Resonate-Protocol/cadence/pkg/audio/decode"
	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// signal is a one-shot broadcast
type signal struct {
	once sync.Once
	ch   chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) Fire() {
	s.once.Do(func() { close(s.ch) })
}

func (s *signal) Done() <-chan struct{} {
	return s.ch
}

func (s *signal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Session plays one track from open to teardown
type Session struct {
	id         string
	path       string
	source     decode.Source
	format     audio.Format
	queue      *BlockQueue
	sink       *Sink
	stream     output.Stream
	state      *stateCell
	blockSize  int
	putTimeout time.Duration

	complete *signal
	exited   chan struct{}
	onExit   func(*Session)

	// owned by the producer goroutine until exited is closed
	streaming bool
	drained   bool
	err       error
}

type sessionConfig struct {
	deviceID   string
	blockSize  int
	bufferSize int
}

// newSession opens the output stream for src. src is not closed on error.
func newSession(path string, src decode.Source, device output.Device, state *stateCell, cfg sessionConfig, onExit func(*Session)) (*Session, error) {
	format := src.Format()
	queue := NewBlockQueue(cfg.bufferSize)

	s := &Session{
		id:         uuid.NewString(),
		path:       path,
		source:     src,
		format:     format,
		queue:      queue,
		sink:       NewSink(queue),
		state:      state,
		blockSize:  cfg.blockSize,
		putTimeout: putTimeout(cfg.bufferSize, cfg.blockSize, format.SampleRate),
		complete:   newSignal(),
		exited:     make(chan struct{}),
		onExit:     onExit,
	}

	stream, err := device.Open(output.StreamConfig{
		DeviceID:   cfg.deviceID,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BlockSize:  cfg.blockSize,
	}, s.sink.Process, s.streamFinished)
	if err != nil {
		return nil, err
	}
	s.stream = stream
	return s, nil
}

// putTimeout is the play time of a full queue
func putTimeout(bufferSize, blockSize, sampleRate int) time.Duration {
	return time.Duration(bufferSize) * time.Duration(blockSize) * time.Second / time.Duration(sampleRate)
}

// ID returns the unique session id
func (s *Session) ID() string { return s.id }

// Path returns the track path
func (s *Session) Path() string { return s.path }

// Format returns the format streamed to the device
func (s *Session) Format() audio.Format { return s.format }

// streamFinished runs when the device finished the stream on its own
func (s *Session) streamFinished() {
	s.complete.Fire()
	s.state.Broadcast()
}

// Wait blocks until the producer goroutine exits or timeout elapses
func (s *Session) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.exited:
		return true
	case <-timer.C:
		return false
	}
}

// Done is closed when the producer goroutine has exited
func (s *Session) Done() <-chan struct{} {
	return s.exited
}

// Err returns the terminal error of an exited session
func (s *Session) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.sink.Err()
}

// Finished reports whether an exited session played to the end of the track
func (s *Session) Finished() bool {
	return s.err == nil && s.sink.Finished()
}

func (s *Session) run() {
	defer s.teardown()

	var pending *audio.Block
	eof := false
	lastFull := true

	for {
		if s.complete.Fired() {
			return
		}

		st, changed := s.state.Watch()
		switch st {
		case Stopped:
			return
		case Paused:
			if err := s.stopStream(); err != nil {
				s.err = err
				return
			}
			<-changed
			continue
		}

		if pending == nil && !eof {
			block, err := s.readBlock()
			switch {
			case errors.Is(err, io.EOF):
				eof = true
				if lastFull {
					// a full final block needs an explicit terminator
					pending = &audio.Block{Channels: s.format.Channels}
				}
			case err != nil:
				s.err = fmt.Errorf("%w: %s: %w", ErrUnreadableFile, s.path, err)
				return
			default:
				lastFull = block.Frames() == s.blockSize
				pending = &block
			}
		}

		if pending == nil {
			// everything is queued; wait for the device to finish
			if err := s.startStream(); err != nil {
				s.err = err
				return
			}
			<-changed
			continue
		}

		if s.queue.Len() >= s.queue.Cap() {
			if err := s.startStream(); err != nil {
				s.err = err
				return
			}
		}

		err := s.queue.Put(*pending, s.putTimeout, changed)
		switch {
		case err == nil:
			pending = nil
		case errors.Is(err, errPutInterrupted):
		default:
			s.err = err
			return
		}
	}
}

// readBlock assembles a full block from as many source reads as it takes.
// Only the last block of a track comes back short.
func (s *Session) readBlock() (audio.Block, error) {
	if s.drained {
		return audio.Block{Channels: s.format.Channels}, io.EOF
	}

	block, err := s.source.ReadBlock(s.blockSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.drained = true
		}
		return block, err
	}

	want := s.blockSize * s.format.Channels
	if len(block.Samples) >= want {
		return block, nil
	}

	samples := make([]int32, 0, want)
	samples = append(samples, block.Samples...)
	for len(samples) < want {
		more, err := s.source.ReadBlock(s.blockSize - len(samples)/s.format.Channels)
		if errors.Is(err, io.EOF) || (err == nil && more.Empty()) {
			s.drained = true
			break
		}
		if err != nil {
			return block, err
		}
		samples = append(samples, more.Samples...)
	}
	return audio.Block{Samples: samples, Channels: s.format.Channels}, nil
}

func (s *Session) startStream() error {
	if s.streaming {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceOpenFailure, err)
	}
	s.streaming = true
	return nil
}

func (s *Session) stopStream() error {
	if !s.streaming {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceOpenFailure, err)
	}
	s.streaming = false
	return nil
}

func (s *Session) teardown() {
	if s.streaming {
		if err := s.stream.Stop(); err != nil {
			log.Warn("Stream stop failed", "session", s.id, "err", err)
		}
		s.streaming = false
	}
	if err := s.stream.Close(); err != nil {
		log.Warn("Stream close failed", "session", s.id, "err", err)
	}
	if err := s.source.Close(); err != nil {
		log.Warn("Source close failed", "session", s.id, "err", err)
	}

	s.complete.Fire()
	if dropped := s.queue.drain(); dropped > 0 {
		log.Debug("Dropped queued blocks", "session", s.id, "blocks", dropped)
	}
	s.state.Set(Stopped)

	close(s.exited)
	if s.onExit != nil {
		s.onExit(s)
	}
}
