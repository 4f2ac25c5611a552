// ABOUTME: Output backend selection
// ABOUTME: Builds a Device from a backend name and its options
package output

import "fmt"

// Backend names accepted by New
const (
	BackendMalgo     = "malgo"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendWAV       = "wav"
)

// Options configure backend construction
type Options struct {
	BitDepth   int    // malgo sample depth
	SampleRate int    // oto fixed rate
	Channels   int    // oto fixed channel count
	WAVPath    string // wav output file
}

// New creates the named backend
func New(backend string, opts Options) (Device, error) {
	switch backend {
	case BackendMalgo, "":
		bitDepth := opts.BitDepth
		if bitDepth == 0 {
			bitDepth = 32
		}
		m, err := NewMalgo(bitDepth)
		if err != nil {
			return nil, err
		}
		return m, nil
	case BackendOto:
		if opts.SampleRate <= 0 || opts.Channels <= 0 {
			return nil, fmt.Errorf("oto backend needs a sample rate and channel count")
		}
		return NewOto(opts.SampleRate, opts.Channels), nil
	case BackendPortAudio:
		p, err := NewPortAudio()
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendWAV:
		if opts.WAVPath == "" {
			return nil, fmt.Errorf("wav backend needs an output path")
		}
		return NewWAVFile(opts.WAVPath), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q (supported: %s, %s, %s, %s)",
			backend, BackendMalgo, BackendOto, BackendPortAudio, BackendWAV)
	}
}
