// ABOUTME: Real-time sink that feeds the output callback from the block queue
// ABOUTME: Never blocks, locks or allocates; records why the stream ended
package playback

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
)

const (
	reasonNone int32 = iota
	reasonFinished
	reasonQueueUnderrun
	reasonDeviceUnderflow
)

// Sink is the output callback of a session
type Sink struct {
	queue     *BlockQueue
	reason    atomic.Int32
	delivered atomic.Int64
}

// NewSink creates a sink that drains queue
func NewSink(queue *BlockQueue) *Sink {
	return &Sink{queue: queue}
}

// Process fills out with the next queued block. A short block is padded
// with silence and ends the stream; an empty queue or a device underflow
// aborts it.
func (k *Sink) Process(out []int32, status output.StatusFlags) output.Result {
	if status&output.OutputUnderflow != 0 {
		k.reason.Store(reasonDeviceUnderflow)
		return output.Abort
	}

	block, ok := k.queue.TryGet()
	if !ok {
		k.reason.Store(reasonQueueUnderrun)
		return output.Abort
	}

	n := copy(out, block.Samples)
	k.delivered.Add(1)
	if n < len(out) {
		clear(out[n:])
		k.reason.Store(reasonFinished)
		return output.Complete
	}
	return output.Continue
}

// Finished reports whether the stream reached the end of the track
func (k *Sink) Finished() bool {
	return k.reason.Load() == reasonFinished
}

// Delivered returns the number of blocks handed to the device
func (k *Sink) Delivered() int64 {
	return k.delivered.Load()
}

// Err returns the terminal error recorded by Process, if any
func (k *Sink) Err() error {
	switch k.reason.Load() {
	case reasonQueueUnderrun:
		return ErrQueueUnderrun
	case reasonDeviceUnderflow:
		return ErrDeviceUnderflow
	default:
		return nil
	}
}
