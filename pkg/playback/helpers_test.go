// ABOUTME: Test doubles for the playback engine
// ABOUTME: Manually clocked output device and a ramp source with an optional stall
package playback

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"github.com/Resonate-Protocol/cadence/pkg/audio/decode"
	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
)

// fakeDevice opens streams that only render when the test ticks them
type fakeDevice struct {
	mu      sync.Mutex
	period  int // samples rendered per tick; 0 means one block
	openErr error
	streams []*fakeStream
	closed  bool
}

func (d *fakeDevice) Open(cfg output.StreamConfig, cb output.Callback, onFinished func()) (output.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openErr != nil {
		return nil, d.openErr
	}

	period := d.period
	if period == 0 {
		period = cfg.BlockSize * cfg.Channels
	}
	s := &fakeStream{
		cfg:      cfg,
		renderer: output.NewRenderer(cfg, cb),
		buf:      make([]int32, period),
		closedCh: make(chan struct{}),
	}
	go func() {
		select {
		case <-s.renderer.Finished():
			onFinished()
		case <-s.closedCh:
		}
	}()
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) stream(t *testing.T, idx int) *fakeStream {
	t.Helper()
	var s *fakeStream
	waitFor(t, "stream to open", func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		if idx < len(d.streams) {
			s = d.streams[idx]
			return true
		}
		return false
	})
	return s
}

type fakeStream struct {
	cfg      output.StreamConfig
	renderer *output.Renderer
	buf      []int32

	mu       sync.Mutex
	running  bool
	starts   int
	closed   bool
	played   []int32
	closedCh chan struct{}
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.starts++
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.running = false
		close(s.closedCh)
	}
	return nil
}

// Tick renders one device period if the stream is running
func (s *fakeStream) Tick(status output.StatusFlags) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.renderer.Render(s.buf, status)
	s.played = append(s.played, s.buf...)
	return true
}

func (s *fakeStream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *fakeStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) Played() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int32(nil), s.played...)
}

// rampSource yields mono frames numbered from 1. With a gate it stalls
// before serving block number gateAfter+1; with failErr it fails there.
type rampSource struct {
	rate      int
	total     int
	pos       int
	served    int
	gateAfter int
	gate      chan struct{}
	failErr   error
	closed    atomic.Bool
}

func newRampSource(frames, rate int) *rampSource {
	return &rampSource{rate: rate, total: frames}
}

func (s *rampSource) ReadBlock(frames int) (audio.Block, error) {
	if s.gate != nil && s.served >= s.gateAfter {
		<-s.gate
	}
	if s.failErr != nil && s.served >= s.gateAfter {
		return audio.Block{Channels: 1}, s.failErr
	}
	if s.pos >= s.total {
		return audio.Block{Channels: 1}, io.EOF
	}

	n := min(frames, s.total-s.pos)
	block := audio.NewBlock(n, 1)
	for i := range block.Samples {
		block.Samples[i] = int32(s.pos + i + 1)
	}
	s.pos += n
	s.served++
	return block, nil
}

func (s *rampSource) Format() audio.Format {
	return audio.Format{Codec: "ramp", SampleRate: s.rate, Channels: 1, BitDepth: 24}
}

func (s *rampSource) Close() error {
	s.closed.Store(true)
	return nil
}

// choppySource serves a ramp in reads of at most maxFrames frames
type choppySource struct {
	*rampSource
	maxFrames int
}

func (s *choppySource) ReadBlock(frames int) (audio.Block, error) {
	return s.rampSource.ReadBlock(min(frames, s.maxFrames))
}

func openerFor(src decode.Source) decode.Opener {
	return func(path string) (decode.Source, error) {
		return src, nil
	}
}

// recorder collects notifications
type recorder struct {
	mu       sync.Mutex
	changed  []string
	states   []State
	finished chan struct{}
	errs     chan error
}

func newRecorder() *recorder {
	return &recorder{
		finished: make(chan struct{}, 8),
		errs:     make(chan error, 8),
	}
}

func (r *recorder) config(cfg Config) Config {
	cfg.OnTrackChanged = func(path string) {
		r.mu.Lock()
		r.changed = append(r.changed, path)
		r.mu.Unlock()
	}
	cfg.OnStateChange = func(s State) {
		r.mu.Lock()
		r.states = append(r.states, s)
		r.mu.Unlock()
	}
	cfg.OnTrackFinished = func() { r.finished <- struct{}{} }
	cfg.OnError = func(err error) { r.errs <- err }
	return cfg
}

func (r *recorder) Changed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changed...)
}

func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) waitFinished(t *testing.T) {
	t.Helper()
	select {
	case <-r.finished:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for TrackFinished")
	}
}

func (r *recorder) waitError(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errs:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an error notification")
		return nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// pump ticks the stream until it finishes, only ticking when a block is queued
func pump(t *testing.T, c *Controller, s *fakeStream) {
	t.Helper()
	waitFor(t, "stream to start", s.Running)
	for !s.renderer.Done() {
		waitFor(t, "queued audio", func() bool {
			return c.Stats().Buffered > 0 || s.renderer.Done()
		})
		if s.renderer.Done() {
			return
		}
		if c.Stats().Buffered > c.Stats().Capacity {
			t.Fatalf("queue holds %d blocks, capacity %d", c.Stats().Buffered, c.Stats().Capacity)
		}
		s.Tick(0)
	}
}

func ramp(from, to int) []int32 {
	out := make([]int32, 0, to-from+1)
	for v := from; v <= to; v++ {
		out = append(out, int32(v))
	}
	return out
}

func equalSamples(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allZero(samples []int32) bool {
	for _, v := range samples {
		if v != 0 {
			return false
		}
	}
	return true
}
