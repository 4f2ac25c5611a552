// ABOUTME: Malgo-based audio output implementation with 24-bit support
// ABOUTME: Drives stream callbacks from the miniaudio device thread
package output

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/Resonate-Protocol/cadence/pkg/audio/encode"
	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	format   encode.SampleFormat
}

// NewMalgo creates a new Malgo output that renders at the given bit depth
// (16, 24 or 32)
func NewMalgo(bitDepth int) (*Malgo, error) {
	format, err := encode.ForBitDepth(bitDepth)
	if err != nil {
		return nil, err
	}
	return &Malgo{format: format}, nil
}

// context lazily creates the malgo context (must hold m.mu)
func (m *Malgo) context() (*malgo.AllocatedContext, error) {
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}
	return m.malgoCtx, nil
}

// Devices lists playback devices
func (m *Malgo) Devices() ([]DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos, err := m.playbackDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInfo, len(infos))
	for i, info := range infos {
		devices[i] = DeviceInfo{
			ID:      strconv.Itoa(i),
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		}
	}
	return devices, nil
}

func (m *Malgo) playbackDevices() ([]malgo.DeviceInfo, error) {
	ctx, err := m.context()
	if err != nil {
		return nil, err
	}
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	return infos, nil
}

// resolve finds a device by index or exact name (must hold m.mu)
func (m *Malgo) resolve(id string) (*malgo.DeviceInfo, error) {
	infos, err := m.playbackDevices()
	if err != nil {
		return nil, err
	}
	if idx, convErr := strconv.Atoi(id); convErr == nil && idx >= 0 && idx < len(infos) {
		return &infos[idx], nil
	}
	for i := range infos {
		if infos[i].Name() == id {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceUnavailable, id)
}

// Open initializes a stopped playback stream
func (m *Malgo) Open(cfg StreamConfig, cb Callback, onFinished func()) (Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := m.context()
	if err != nil {
		return nil, err
	}

	var malgoFormat malgo.FormatType
	switch m.format {
	case encode.S16LE:
		malgoFormat = malgo.FormatS16
	case encode.S24LE:
		malgoFormat = malgo.FormatS24
	default:
		malgoFormat = malgo.FormatS32
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgoFormat
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BlockSize)
	deviceConfig.Alsa.NoMMap = 1

	if cfg.DeviceID != "" {
		info, err := m.resolve(cfg.DeviceID)
		if err != nil {
			return nil, err
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
	}

	s := &malgoStream{
		renderer: NewRenderer(cfg, cb),
		format:   m.format,
		channels: cfg.Channels,
		scratch:  make([]int32, cfg.BlockSize*cfg.Channels),
		closed:   make(chan struct{}),
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize playback device: %w", ErrDeviceUnavailable, err)
	}
	s.device = device

	watchFinished(s.renderer, s.closed, onFinished)

	log.Debug("Malgo stream opened",
		"rate", cfg.SampleRate, "channels", cfg.Channels, "block", cfg.BlockSize, "format", m.format)
	return s, nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Warn("malgo context uninit error", "err", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

type malgoStream struct {
	device    *malgo.Device
	renderer  *Renderer
	format    encode.SampleFormat
	channels  int
	scratch   []int32
	closed    chan struct{}
	closeOnce sync.Once
}

// data is called by malgo to fill the audio output buffer
func (s *malgoStream) data(out, _ []byte, frameCount uint32) {
	total := int(frameCount) * s.channels

	for total > 0 {
		n := min(total, len(s.scratch))
		s.renderer.Render(s.scratch[:n], 0)
		written := s.format.Put(out, s.scratch[:n])
		out = out[written:]
		total -= n
	}
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

func (s *malgoStream) Stop() error {
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	s.closeOnce.Do(func() {
		s.device.Uninit()
		close(s.closed)
	})
	return nil
}
