// ABOUTME: WAV file source
// ABOUTME: Streams integer PCM from WAV files with go-audio/wav
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatFloat = 3

type wavSource struct {
	file    *os.File
	decoder *wav.Decoder
	format  audio.Format
	buf     *goaudio.IntBuffer
}

func openWAV(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		if decoder.Err() != nil {
			return nil, fmt.Errorf("failed to decode WAV: %w", decoder.Err())
		}
		return nil, errors.New("failed to decode WAV: invalid header")
	}
	if decoder.WavAudioFormat == wavFormatFloat {
		f.Close()
		return nil, errors.New("floating point WAV is not supported")
	}
	if decoder.NumChans == 0 || decoder.BitDepth == 0 {
		f.Close()
		return nil, errors.New("WAV header has no channels or bit depth")
	}

	format := audio.Format{
		Codec:      "wav",
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
	}

	return &wavSource{
		file:    f,
		decoder: decoder,
		format:  format,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: format.Channels,
				SampleRate:  format.SampleRate,
			},
			SourceBitDepth: format.BitDepth,
		},
	}, nil
}

func (s *wavSource) ReadBlock(frames int) (audio.Block, error) {
	channels := s.format.Channels
	need := frames * channels
	if cap(s.buf.Data) < need {
		s.buf.Data = make([]int, need)
	}
	s.buf.Data = s.buf.Data[:need]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return audio.Block{Channels: channels}, fmt.Errorf("wav decode error: %w", err)
	}

	n -= n % channels
	if n == 0 {
		return audio.Block{Channels: channels}, io.EOF
	}

	block := audio.Block{Samples: make([]int32, n), Channels: channels}
	for i := 0; i < n; i++ {
		sample := s.buf.Data[i]
		if s.format.BitDepth == 8 {
			// 8-bit WAV is unsigned
			sample -= 128
		}
		block.Samples[i] = audio.SampleFromBitDepth(sample, s.format.BitDepth)
	}
	return block, nil
}

func (s *wavSource) Format() audio.Format { return s.format }

func (s *wavSource) Close() error {
	return s.file.Close()
}
