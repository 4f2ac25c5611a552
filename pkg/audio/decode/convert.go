// ABOUTME: Format conversion wrapper for sources
// ABOUTME: Remixes channels and resamples so a source matches a fixed output format
package decode

import (
	"io"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"github.com/Resonate-Protocol/cadence/pkg/audio/resample"
)

type convertedSource struct {
	src       Source
	format    audio.Format
	resampler *resample.Resampler
	pending   []int32
	eof       bool
}

// Convert wraps src so it yields sampleRate/channels audio. The source is
// returned unchanged when it already matches.
func Convert(src Source, sampleRate, channels int) Source {
	in := src.Format()
	if in.SampleRate == sampleRate && in.Channels == channels {
		return src
	}

	format := in
	format.SampleRate = sampleRate
	format.Channels = channels

	return &convertedSource{
		src:       src,
		format:    format,
		resampler: resample.New(in.SampleRate, sampleRate, channels),
	}
}

func (c *convertedSource) ReadBlock(frames int) (audio.Block, error) {
	channels := c.format.Channels
	need := frames * channels

	for len(c.pending) < need && !c.eof {
		block, err := c.src.ReadBlock(frames)
		if err == io.EOF {
			c.eof = true
			break
		}
		if err != nil {
			return audio.Block{Channels: channels}, err
		}

		mixed := remix(block, channels)
		if c.resampler.Passthrough() {
			c.pending = append(c.pending, mixed...)
			continue
		}
		out := make([]int32, c.resampler.OutputSamplesNeeded(len(mixed)))
		n := c.resampler.Resample(mixed, out)
		c.pending = append(c.pending, out[:n]...)
	}

	if len(c.pending) == 0 {
		return audio.Block{Channels: channels}, io.EOF
	}

	n := min(need, len(c.pending))
	block := audio.Block{Samples: make([]int32, n), Channels: channels}
	copy(block.Samples, c.pending)
	c.pending = append(c.pending[:0], c.pending[n:]...)
	return block, nil
}

// remix maps a block onto the requested channel count. Downmix to mono
// averages, anything else reuses source channels in order.
func remix(block audio.Block, channels int) []int32 {
	if block.Channels == channels {
		return block.Samples
	}

	frames := block.Frames()
	out := make([]int32, frames*channels)
	for i := 0; i < frames; i++ {
		frame := block.Samples[i*block.Channels : (i+1)*block.Channels]
		if channels == 1 {
			var sum int64
			for _, s := range frame {
				sum += int64(s)
			}
			out[i] = int32(sum / int64(len(frame)))
			continue
		}
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = frame[ch%block.Channels]
		}
	}
	return out
}

func (c *convertedSource) Format() audio.Format { return c.format }

func (c *convertedSource) Close() error {
	return c.src.Close()
}
