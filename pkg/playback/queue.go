// ABOUTME: Bounded single-producer single-consumer block queue
// ABOUTME: Blocking put with timeout for the producer, non-blocking get for the sink
package playback

import (
	"time"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
)

// BlockQueue is a FIFO of audio blocks with a fixed capacity
type BlockQueue struct {
	blocks chan audio.Block
}

// NewBlockQueue creates a queue holding at most capacity blocks
func NewBlockQueue(capacity int) *BlockQueue {
	return &BlockQueue{blocks: make(chan audio.Block, capacity)}
}

// Put appends b, waiting up to timeout for room. It returns
// ErrProducerPutTimeout if the queue stayed full and errPutInterrupted if
// interrupt was closed first.
func (q *BlockQueue) Put(b audio.Block, timeout time.Duration, interrupt <-chan struct{}) error {
	select {
	case q.blocks <- b:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case q.blocks <- b:
		return nil
	case <-interrupt:
		return errPutInterrupted
	case <-timer.C:
		return ErrProducerPutTimeout
	}
}

// TryGet removes the oldest block without blocking
func (q *BlockQueue) TryGet() (audio.Block, bool) {
	select {
	case b := <-q.blocks:
		return b, true
	default:
		return audio.Block{}, false
	}
}

// Len returns the number of queued blocks
func (q *BlockQueue) Len() int {
	return len(q.blocks)
}

// Cap returns the queue capacity
func (q *BlockQueue) Cap() int {
	return cap(q.blocks)
}

// drain discards queued blocks and reports how many were dropped
func (q *BlockQueue) drain() int {
	n := 0
	for {
		if _, ok := q.TryGet(); !ok {
			return n
		}
		n++
	}
}
