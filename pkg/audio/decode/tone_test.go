// ABOUTME: Tests for the sine tone source
// ABOUTME: Verifies duration, layout and end-of-stream behaviour
package decode

import (
	"io"
	"testing"
	"time"
)

func TestToneLength(t *testing.T) {
	src := NewTone(440, 1000, 2, 250*time.Millisecond)

	total := 0
	for {
		block, err := src.ReadBlock(100)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadBlock() failed: %v", err)
		}
		if block.Frames() > 100 {
			t.Fatalf("block has %d frames, asked for 100", block.Frames())
		}
		total += block.Frames()
	}

	if total != 250 {
		t.Errorf("expected 250 frames, got %d", total)
	}
}

func TestToneChannelsMatch(t *testing.T) {
	src := NewTone(440, 48000, 2, time.Second)

	block, err := src.ReadBlock(64)
	if err != nil {
		t.Fatalf("ReadBlock() failed: %v", err)
	}
	for i := 0; i < block.Frames(); i++ {
		if block.Samples[i*2] != block.Samples[i*2+1] {
			t.Fatalf("frame %d: channels differ", i)
		}
	}
	if src.Format().SampleRate != 48000 || src.Format().Channels != 2 {
		t.Errorf("unexpected format %+v", src.Format())
	}
}
