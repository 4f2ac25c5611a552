// ABOUTME: MP3 file source
// ABOUTME: Decodes MP3 to int32 samples with go-mp3
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always emits 16-bit little-endian stereo
const mp3BytesPerFrame = 4

type mp3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
}

func openMP3(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &mp3Source{
		file:    f,
		decoder: decoder,
		format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}

func (s *mp3Source) ReadBlock(frames int) (audio.Block, error) {
	need := frames * mp3BytesPerFrame
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return audio.Block{Channels: 2}, fmt.Errorf("mp3 decode error: %w", err)
	}

	got := n / mp3BytesPerFrame
	if got == 0 {
		return audio.Block{Channels: 2}, io.EOF
	}

	block := audio.NewBlock(got, 2)
	for i := range block.Samples {
		block.Samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return block, nil
}

func (s *mp3Source) Format() audio.Format { return s.format }

func (s *mp3Source) Close() error {
	return s.file.Close()
}
