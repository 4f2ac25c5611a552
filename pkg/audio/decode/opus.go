//go:build !noopus

// ABOUTME: Ogg Opus file source
// ABOUTME: Decodes Ogg Opus streams at 48kHz with libopusfile
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// Opus always decodes at 48kHz
const opusSampleRate = 48000

// packetReader is the part of opus.Stream the source uses. Each Read
// decodes at most one Opus packet.
type packetReader interface {
	Read(pcm []int16) (int, error)
	Close() error
}

type opusSource struct {
	file   *os.File
	stream packetReader
	format audio.Format
	pcm    []int16
	eof    bool
}

func openOpus(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus file: %w", err)
	}

	channels, err := opusChannels(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind Opus file: %w", err)
	}

	stream, err := opus.NewStream(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode Opus: %w", err)
	}

	return &opusSource{
		file:   f,
		stream: stream,
		format: audio.Format{
			Codec:      "opus",
			SampleRate: opusSampleRate,
			Channels:   channels,
			BitDepth:   16,
		},
	}, nil
}

// opusChannels reads the channel count from the OpusHead packet in the first Ogg page
func opusChannels(r io.Reader) (int, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read Opus header: %w", err)
	}
	head = head[:n]

	if !bytes.HasPrefix(head, []byte("OggS")) {
		return 0, errors.New("not an Ogg stream")
	}
	idx := bytes.Index(head, []byte("OpusHead"))
	if idx < 0 || idx+9 >= len(head) {
		return 0, errors.New("missing OpusHead packet")
	}
	channels := int(head[idx+9])
	if channels == 0 {
		return 0, errors.New("OpusHead declares zero channels")
	}
	return channels, nil
}

func (s *opusSource) ReadBlock(frames int) (audio.Block, error) {
	channels := s.format.Channels
	need := frames * channels
	if cap(s.pcm) < need {
		s.pcm = make([]int16, need)
	}
	pcm := s.pcm[:need]

	// Stream.Read returns samples per channel for one packet at most, so keep
	// reading until the block is full
	filled := 0
	for filled < need && !s.eof {
		n, err := s.stream.Read(pcm[filled:])
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.eof = true
				break
			}
			return audio.Block{Channels: channels}, fmt.Errorf("opus decode error: %w", err)
		}
		if n == 0 {
			s.eof = true
			break
		}
		filled += n * channels
	}
	if filled == 0 {
		return audio.Block{Channels: channels}, io.EOF
	}

	block := audio.NewBlock(filled/channels, channels)
	for i := range block.Samples {
		block.Samples[i] = audio.SampleFromInt16(pcm[i])
	}
	return block, nil
}

func (s *opusSource) Format() audio.Format { return s.format }

func (s *opusSource) Close() error {
	// opus.Stream closes the file it reads from
	err := s.stream.Close()
	if s.file != nil {
		if ferr := s.file.Close(); ferr != nil && !errors.Is(ferr, os.ErrClosed) && err == nil {
			err = ferr
		}
	}
	return err
}
