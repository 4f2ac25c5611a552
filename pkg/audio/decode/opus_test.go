//go:build !noopus

// ABOUTME: Tests for the Ogg Opus source
// ABOUTME: Covers header parsing and joining decoded packets into full blocks
package decode

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
)

// fakePackets hands out packetFrames frames per Read, like opus.Stream
// does for one 20ms packet
type fakePackets struct {
	channels     int
	packetFrames int
	total        int
	pos          int
	closed       bool
}

func (p *fakePackets) Read(pcm []int16) (int, error) {
	if p.pos >= p.total {
		return 0, io.EOF
	}
	n := min(p.packetFrames, p.total-p.pos, len(pcm)/p.channels)
	for i := 0; i < n; i++ {
		for ch := 0; ch < p.channels; ch++ {
			pcm[i*p.channels+ch] = int16(p.pos + i + 1)
		}
	}
	p.pos += n
	return n, nil
}

func (p *fakePackets) Close() error {
	p.closed = true
	return nil
}

func newPacketSource(channels, packetFrames, total int) (*opusSource, *fakePackets) {
	packets := &fakePackets{channels: channels, packetFrames: packetFrames, total: total}
	return &opusSource{
		stream: packets,
		format: audio.Format{Codec: "opus", SampleRate: opusSampleRate, Channels: channels, BitDepth: 16},
	}, packets
}

func TestOpusSourceJoinsPackets(t *testing.T) {
	tests := []struct {
		name         string
		channels     int
		packetFrames int
		total        int
		block        int
		want         []int
	}{
		{"packets smaller than block", 2, 960, 5000, 2048, []int{2048, 2048, 904}},
		{"block smaller than packet", 1, 960, 2000, 512, []int{512, 512, 512, 464}},
		{"exact multiple", 2, 960, 1920, 960, []int{960, 960}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := newPacketSource(tt.channels, tt.packetFrames, tt.total)

			var got []int
			next := int16(1)
			for {
				block, err := src.ReadBlock(tt.block)
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("ReadBlock() failed: %v", err)
				}
				if block.Channels != tt.channels {
					t.Fatalf("expected %d channels, got %d", tt.channels, block.Channels)
				}
				for i := 0; i < block.Frames(); i++ {
					if want := audio.SampleFromInt16(next); block.Samples[i*tt.channels] != want {
						t.Fatalf("frame %d: expected %d, got %d", next, want, block.Samples[i*tt.channels])
					}
					next++
				}
				got = append(got, block.Frames())
			}

			if len(got) != len(tt.want) {
				t.Fatalf("expected block sizes %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected block sizes %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestOpusSourceStaysAtEOF(t *testing.T) {
	src, packets := newPacketSource(1, 960, 100)

	if block, err := src.ReadBlock(2048); err != nil || block.Frames() != 100 {
		t.Fatalf("expected a 100 frame final block, got %d frames, err %v", block.Frames(), err)
	}
	for i := 0; i < 2; i++ {
		if _, err := src.ReadBlock(2048); !errors.Is(err, io.EOF) {
			t.Fatalf("expected io.EOF, got %v", err)
		}
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if !packets.closed {
		t.Error("expected the packet stream to be closed")
	}
}

func TestOpusChannels(t *testing.T) {
	head := func(channels byte) []byte {
		var b bytes.Buffer
		b.WriteString("OggS")
		b.Write(make([]byte, 24))
		b.WriteString("OpusHead")
		b.WriteByte(1)
		b.WriteByte(channels)
		b.Write(make([]byte, 16))
		return b.Bytes()
	}

	tests := []struct {
		name    string
		data    []byte
		want    int
		wantErr bool
	}{
		{"stereo", head(2), 2, false},
		{"mono", head(1), 1, false},
		{"zero channels", head(0), 0, true},
		{"not ogg", []byte("RIFF....WAVEfmt "), 0, true},
		{"ogg without opus head", append([]byte("OggS"), make([]byte, 40)...), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := opusChannels(bytes.NewReader(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("opusChannels() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expected %d channels, got %d", tt.want, got)
			}
		})
	}
}

func TestOpenOpusRejectsNonOgg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.opus")
	if err := os.WriteFile(path, []byte("definitely not ogg"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrUnreadableFile) {
		t.Errorf("expected ErrUnreadableFile, got %v", err)
	}
}
