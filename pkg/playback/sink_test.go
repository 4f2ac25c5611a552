// ABOUTME: Tests for the real-time sink
// ABOUTME: Covers the full, short, starved and underflow cases
package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
)

func TestSinkProcess(t *testing.T) {
	tests := []struct {
		name     string
		queued   []int32
		status   output.StatusFlags
		want     output.Result
		out      []int32
		err      error
		finished bool
	}{
		{
			name:   "full block",
			queued: []int32{1, 2, 3, 4},
			want:   output.Continue,
			out:    []int32{1, 2, 3, 4},
		},
		{
			name:     "short block pads and completes",
			queued:   []int32{7, 8},
			want:     output.Complete,
			out:      []int32{7, 8, 0, 0},
			finished: true,
		},
		{
			name:     "empty terminator completes",
			queued:   []int32{},
			want:     output.Complete,
			out:      []int32{0, 0, 0, 0},
			finished: true,
		},
		{
			name: "empty queue aborts",
			want: output.Abort,
			out:  []int32{9, 9, 9, 9},
			err:  ErrQueueUnderrun,
		},
		{
			name:   "device underflow aborts",
			queued: []int32{1, 2, 3, 4},
			status: output.OutputUnderflow,
			want:   output.Abort,
			out:    []int32{9, 9, 9, 9},
			err:    ErrDeviceUnderflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewBlockQueue(2)
			if tt.queued != nil {
				q.Put(audio.Block{Samples: tt.queued, Channels: 1}, time.Second, nil)
			}
			sink := NewSink(q)

			out := []int32{9, 9, 9, 9}
			if got := sink.Process(out, tt.status); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if !equalSamples(out, tt.out) {
				t.Errorf("expected output %v, got %v", tt.out, out)
			}
			if !errors.Is(sink.Err(), tt.err) {
				t.Errorf("expected err %v, got %v", tt.err, sink.Err())
			}
			if sink.Finished() != tt.finished {
				t.Errorf("expected finished=%v", tt.finished)
			}
		})
	}
}

func TestSinkCountsDelivered(t *testing.T) {
	q := NewBlockQueue(4)
	q.Put(audio.Block{Samples: []int32{1, 2}, Channels: 1}, time.Second, nil)
	q.Put(audio.Block{Samples: []int32{3}, Channels: 1}, time.Second, nil)
	sink := NewSink(q)

	out := make([]int32, 2)
	sink.Process(out, 0)
	sink.Process(out, 0)

	if got := sink.Delivered(); got != 2 {
		t.Errorf("expected 2 delivered blocks, got %d", got)
	}
}

func TestSinkProcessDoesNotAllocate(t *testing.T) {
	q := NewBlockQueue(1)
	sink := NewSink(q)
	b := audio.NewBlock(256, 2)
	out := make([]int32, len(b.Samples))

	allocs := testing.AllocsPerRun(100, func() {
		q.Put(b, time.Second, nil)
		sink.Process(out, 0)
	})
	if allocs != 0 {
		t.Errorf("expected no allocations per callback, got %v", allocs)
	}
}
