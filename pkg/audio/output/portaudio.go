//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback streams using PortAudio
package output

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	mu          sync.Mutex
	initialized bool
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() (*PortAudio, error) {
	return &PortAudio{}, nil
}

func (p *PortAudio) init() error {
	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	p.initialized = true
	return nil
}

// Devices lists devices with output channels
func (p *PortAudio) Devices() ([]DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return nil, err
	}
	all, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	def, _ := portaudio.DefaultOutputDevice()

	var devices []DeviceInfo
	for i, d := range all {
		if d.MaxOutputChannels == 0 {
			continue
		}
		devices = append(devices, DeviceInfo{
			ID:      strconv.Itoa(i),
			Name:    d.Name,
			Default: def != nil && d.Name == def.Name,
		})
	}
	return devices, nil
}

func (p *PortAudio) resolve(id string) (*portaudio.DeviceInfo, error) {
	if id == "" {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default output: %w", ErrDeviceUnavailable, err)
		}
		return dev, nil
	}

	all, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if idx, convErr := strconv.Atoi(id); convErr == nil && idx >= 0 && idx < len(all) && all[idx].MaxOutputChannels > 0 {
		return all[idx], nil
	}
	for _, d := range all {
		if d.Name == id && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceUnavailable, id)
}

// Open creates a stopped callback stream
func (p *PortAudio) Open(cfg StreamConfig, cb Callback, onFinished func()) (Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return nil, err
	}
	dev, err := p.resolve(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.BlockSize

	s := &portAudioStream{
		renderer: NewRenderer(cfg, cb),
		closed:   make(chan struct{}),
	}
	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open stream: %w", ErrDeviceUnavailable, err)
	}
	s.stream = stream

	watchFinished(s.renderer, s.closed, onFinished)
	log.Debug("PortAudio stream opened", "device", dev.Name, "rate", cfg.SampleRate, "channels", cfg.Channels)
	return s, nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream    *portaudio.Stream
	renderer  *Renderer
	closed    chan struct{}
	closeOnce sync.Once
}

// process is the PortAudio callback. paInt32 is left-justified, so the
// 24-bit samples are shifted in place.
func (s *portAudioStream) process(out []int32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	var status StatusFlags
	if flags&portaudio.OutputUnderflow != 0 {
		status |= OutputUnderflow
	}
	s.renderer.Render(out, status)
	for i := range out {
		out[i] <<= 8
	}
}

func (s *portAudioStream) Start() error {
	return s.stream.Start()
}

func (s *portAudioStream) Stop() error {
	return s.stream.Stop()
}

func (s *portAudioStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.stream.Close()
		close(s.closed)
	})
	return err
}
