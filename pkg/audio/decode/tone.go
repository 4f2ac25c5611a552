// ABOUTME: Sine tone source for demos and device checks
// ABOUTME: Generates a finite test tone instead of reading a file
package decode

import (
	"io"
	"math"
	"time"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
)

// ToneSource generates a sine wave of fixed length
type ToneSource struct {
	frequency  float64
	sampleRate int
	channels   int
	total      int64
	position   int64
}

// NewTone creates a tone of the given frequency and duration at half volume
func NewTone(frequency float64, sampleRate, channels int, duration time.Duration) *ToneSource {
	return &ToneSource{
		frequency:  frequency,
		sampleRate: sampleRate,
		channels:   channels,
		total:      int64(duration.Seconds() * float64(sampleRate)),
	}
}

func (s *ToneSource) ReadBlock(frames int) (audio.Block, error) {
	remaining := s.total - s.position
	if remaining <= 0 {
		return audio.Block{Channels: s.channels}, io.EOF
	}
	n := int(min(int64(frames), remaining))

	block := audio.NewBlock(n, s.channels)
	for i := 0; i < n; i++ {
		t := float64(s.position+int64(i)) / float64(s.sampleRate)
		value := int32(math.Sin(2*math.Pi*s.frequency*t) * audio.Max24Bit * 0.5)
		for ch := 0; ch < s.channels; ch++ {
			block.Samples[i*s.channels+ch] = value
		}
	}
	s.position += int64(n)
	return block, nil
}

func (s *ToneSource) Format() audio.Format {
	return audio.Format{
		Codec:      "tone",
		SampleRate: s.sampleRate,
		Channels:   s.channels,
		BitDepth:   24,
	}
}

func (s *ToneSource) Close() error { return nil }
