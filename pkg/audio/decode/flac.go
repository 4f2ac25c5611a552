// ABOUTME: FLAC file source
// ABOUTME: Decodes FLAC frames with mewkiz/flac and re-slices them into blocks
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"github.com/mewkiz/flac"
)

type flacSource struct {
	file    *os.File
	stream  *flac.Stream
	format  audio.Format
	pending []int32 // interleaved samples left over from the last FLAC frame
	eof     bool
}

func openFLAC(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	if info.NChannels == 0 {
		f.Close()
		return nil, errors.New("FLAC stream has no channels")
	}

	return &flacSource{
		file:   f,
		stream: stream,
		format: audio.Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		},
	}, nil
}

func (s *flacSource) ReadBlock(frames int) (audio.Block, error) {
	channels := s.format.Channels
	need := frames * channels

	for len(s.pending) < need && !s.eof {
		frame, err := s.stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.eof = true
				break
			}
			return audio.Block{Channels: channels}, fmt.Errorf("flac decode error: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				sample := frame.Subframes[ch].Samples[i]
				s.pending = append(s.pending, audio.SampleFromBitDepth(int(sample), s.format.BitDepth))
			}
		}
	}

	if len(s.pending) == 0 {
		return audio.Block{Channels: channels}, io.EOF
	}

	n := min(need, len(s.pending))
	block := audio.Block{Samples: make([]int32, n), Channels: channels}
	copy(block.Samples, s.pending)
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return block, nil
}

func (s *flacSource) Format() audio.Format { return s.format }

func (s *flacSource) Close() error {
	s.stream.Close()
	return s.file.Close()
}
