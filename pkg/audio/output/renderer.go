// ABOUTME: Fixed-block renderer between device periods and stream callbacks
// ABOUTME: Stages one callback block so devices can pull any number of samples
package output

import "sync/atomic"

// Renderer turns device-sized pulls into BlockSize-sized callbacks. Render
// must only be called from one goroutine (the device's audio thread). It
// never allocates.
type Renderer struct {
	cb       Callback
	block    []int32
	offset   int
	status   StatusFlags
	draining bool
	done     atomic.Bool
	finished chan struct{}
}

// NewRenderer creates a renderer for cfg that pulls blocks from cb
func NewRenderer(cfg StreamConfig, cb Callback) *Renderer {
	block := make([]int32, cfg.BlockSize*cfg.Channels)
	return &Renderer{
		cb:       cb,
		block:    block,
		offset:   len(block),
		finished: make(chan struct{}, 1),
	}
}

// Render fills out completely. Once the stream has finished it writes silence.
func (r *Renderer) Render(out []int32, status StatusFlags) {
	r.status |= status

	for len(out) > 0 {
		if r.done.Load() {
			clear(out)
			return
		}

		if r.offset >= len(r.block) {
			result := r.cb(r.block, r.status)
			r.status = 0
			r.offset = 0

			switch result {
			case Complete:
				r.draining = true
			case Abort:
				r.finish()
				continue
			}
		}

		n := copy(out, r.block[r.offset:])
		r.offset += n
		out = out[n:]

		if r.draining && r.offset >= len(r.block) {
			r.finish()
		}
	}
}

func (r *Renderer) finish() {
	r.done.Store(true)
	select {
	case r.finished <- struct{}{}:
	default:
	}
}

// Done reports whether the stream has finished
func (r *Renderer) Done() bool {
	return r.done.Load()
}

// Finished is signalled once when the stream finishes
func (r *Renderer) Finished() <-chan struct{} {
	return r.finished
}
