// ABOUTME: Oto-based audio output implementation
// ABOUTME: Oto pulls 16-bit PCM from a reader that renders stream callbacks
package output

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/cadence/pkg/audio/encode"
	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library. Oto allows one context per
// process, so the sample rate and channel count are fixed at construction.
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	channels   int
}

// NewOto creates a new Oto output
func NewOto(sampleRate, channels int) *Oto {
	return &Oto{
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Format returns the fixed output format
func (o *Oto) Format() (int, int) {
	return o.sampleRate, o.channels
}

func (o *Oto) context() (*oto.Context, error) {
	if o.otoCtx != nil {
		return o.otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   o.sampleRate,
		ChannelCount: o.channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create oto context: %w", ErrDeviceUnavailable, err)
	}
	<-readyChan

	o.otoCtx = ctx
	log.Info("Audio output initialized", "backend", "oto", "rate", o.sampleRate, "channels", o.channels)
	return ctx, nil
}

// Open creates a paused player
func (o *Oto) Open(cfg StreamConfig, cb Callback, onFinished func()) (Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.DeviceID != "" {
		return nil, fmt.Errorf("%w: oto only plays to the default device (got %q)", ErrDeviceUnavailable, cfg.DeviceID)
	}
	if cfg.SampleRate != o.sampleRate || cfg.Channels != o.channels {
		return nil, fmt.Errorf("oto is fixed at %dHz/%dch, stream asked for %dHz/%dch",
			o.sampleRate, o.channels, cfg.SampleRate, cfg.Channels)
	}

	o.mu.Lock()
	ctx, err := o.context()
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s := &otoStream{
		renderer: NewRenderer(cfg, cb),
		scratch:  make([]int32, cfg.BlockSize*cfg.Channels),
		closed:   make(chan struct{}),
	}
	s.player = ctx.NewPlayer(s)
	s.player.SetBufferSize(cfg.BlockSize * cfg.Channels * encode.S16LE.BytesPerSample())

	watchFinished(s.renderer, s.closed, onFinished)
	return s, nil
}

// Close suspends the context; oto contexts cannot be destroyed
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Warn("oto suspend error", "err", err)
		}
	}
	return nil
}

type otoStream struct {
	player    *oto.Player
	renderer  *Renderer
	scratch   []int32
	closed    chan struct{}
	closeOnce sync.Once
}

// Read is the oto pull path
func (s *otoStream) Read(p []byte) (int, error) {
	total := len(p) / 2
	written := 0
	for total > 0 {
		n := min(total, len(s.scratch))
		s.renderer.Render(s.scratch[:n], 0)
		written += encode.S16LE.Put(p[written:], s.scratch[:n])
		total -= n
	}
	return written, nil
}

func (s *otoStream) Start() error {
	s.player.Play()
	return nil
}

func (s *otoStream) Stop() error {
	s.player.Pause()
	return nil
}

func (s *otoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.player.Close()
		close(s.closed)
	})
	return err
}
