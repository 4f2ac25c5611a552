// ABOUTME: WAV file output for headless playback
// ABOUTME: Renders stream callbacks on a wall-clock schedule into a WAV file
package output

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 24

// WAVFile writes each stream to a 24-bit WAV file, pacing callbacks like a
// sound card would
type WAVFile struct {
	path string
}

// NewWAVFile creates a file-backed output. Every opened stream truncates path.
func NewWAVFile(path string) *WAVFile {
	return &WAVFile{path: path}
}

// Open creates the file and a stopped stream
func (w *WAVFile) Open(cfg StreamConfig, cb Callback, onFinished func()) (Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.DeviceID != "" {
		return nil, fmt.Errorf("%w: wav output has no devices (got %q)", ErrDeviceUnavailable, cfg.DeviceID)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	s := &wavStream{
		renderer: NewRenderer(cfg, cb),
		encoder:  wav.NewEncoder(f, cfg.SampleRate, wavBitDepth, cfg.Channels, 1),
		file:     f,
		period:   time.Duration(cfg.BlockSize) * time.Second / time.Duration(cfg.SampleRate),
		scratch:  make([]int32, cfg.BlockSize*cfg.Channels),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{SampleRate: cfg.SampleRate, NumChannels: cfg.Channels},
			Data:           make([]int, cfg.BlockSize*cfg.Channels),
			SourceBitDepth: wavBitDepth,
		},
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.loop()

	watchFinished(s.renderer, s.closed, onFinished)
	log.Debug("WAV stream opened", "path", w.path, "rate", cfg.SampleRate, "channels", cfg.Channels)
	return s, nil
}

// Close releases resources
func (w *WAVFile) Close() error {
	return nil
}

type wavStream struct {
	renderer *Renderer
	encoder  *wav.Encoder
	file     *os.File
	period   time.Duration
	scratch  []int32
	buf      *goaudio.IntBuffer

	mu      sync.Mutex
	running bool
	wake    chan struct{}
	quit    chan struct{}
	exited  chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *wavStream) loop() {
	defer close(s.exited)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()

		if !running || s.renderer.Done() {
			select {
			case <-s.wake:
				continue
			case <-s.quit:
				return
			}
		}

		select {
		case <-ticker.C:
		case <-s.wake:
			continue
		case <-s.quit:
			return
		}

		s.renderer.Render(s.scratch, 0)
		for i, sample := range s.scratch {
			s.buf.Data[i] = int(sample)
		}
		if err := s.encoder.Write(s.buf); err != nil {
			log.Error("WAV write failed", "err", err)
		}
	}
}

func (s *wavStream) setRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *wavStream) Start() error {
	s.setRunning(true)
	return nil
}

func (s *wavStream) Stop() error {
	s.setRunning(false)
	return nil
}

func (s *wavStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.exited

		if err := s.encoder.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to finalize WAV: %w", err)
		}
		if err := s.file.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
		close(s.closed)
	})
	return s.closeErr
}
