// ABOUTME: Tests for the remote control server and client
// ABOUTME: Runs both ends over an httptest server with a fake player
package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/cadence/internal/version"
)

type fakePlayer struct {
	mu    sync.Mutex
	calls []string
	err   error
	state State
}

func (p *fakePlayer) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.err
}

func (p *fakePlayer) Play(path string) error { return p.record("play " + path) }
func (p *fakePlayer) Pause() error           { return p.record("pause") }
func (p *fakePlayer) Resume() error          { return p.record("resume") }
func (p *fakePlayer) Stop() error            { return p.record("stop") }
func (p *fakePlayer) Next() error            { return p.record("next") }
func (p *fakePlayer) Previous() error        { return p.record("previous") }

func (p *fakePlayer) Status() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func startServer(t *testing.T, player Player) (*Server, string) {
	t.Helper()
	srv := NewServer(Config{Name: "test-player"}, player)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Stop(ctx)
		ts.Close()
	})
	return srv, strings.TrimPrefix(ts.URL, "http://")
}

func connect(t *testing.T, addr string) *Client {
	t.Helper()
	c := NewClient(ClientConfig{ServerAddr: addr, Name: "test-client"})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitState(t *testing.T, c *Client) State {
	t.Helper()
	select {
	case st := <-c.States:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for player/state")
		return State{}
	}
}

func waitEvent(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case ev := <-c.Events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return Message{}
	}
}

func TestHandshakeSendsState(t *testing.T) {
	player := &fakePlayer{state: State{State: "playing", Track: "a.flac", Capacity: 20}}
	srv, addr := startServer(t, player)

	c := connect(t, addr)

	if c.Server().Name != "test-player" || c.Server().Version != ProtocolVersion {
		t.Errorf("unexpected server hello %+v", c.Server())
	}
	if c.Server().Software != version.String() {
		t.Errorf("expected software %q, got %q", version.String(), c.Server().Software)
	}
	st := waitState(t, c)
	if st.State != "playing" || st.Track != "a.flac" || st.Capacity != 20 {
		t.Errorf("unexpected initial state %+v", st)
	}

	waitClients(t, srv, 1)
}

func waitClients(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, srv.Clients())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCommandsReachPlayer(t *testing.T) {
	player := &fakePlayer{}
	_, addr := startServer(t, player)
	c := connect(t, addr)
	waitState(t, c)

	commands := []struct {
		send func() error
		typ  string
	}{
		{func() error { return c.Play("/music/a.mp3") }, TypePlay},
		{c.Pause, TypePause},
		{c.Resume, TypeResume},
		{c.Next, TypeNext},
		{c.Previous, TypePrevious},
		{c.Stop, TypeStop},
	}

	for _, cmd := range commands {
		if err := cmd.send(); err != nil {
			t.Fatalf("%s send failed: %v", cmd.typ, err)
		}
		r, err := c.Await(2 * time.Second)
		if err != nil {
			t.Fatalf("%s: %v", cmd.typ, err)
		}
		if r.Command != cmd.typ || !r.OK {
			t.Errorf("unexpected result %+v for %s", r, cmd.typ)
		}
	}

	want := []string{"play /music/a.mp3", "pause", "resume", "next", "previous", "stop"}
	got := player.Calls()
	if len(got) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCommandErrorIsReported(t *testing.T) {
	player := &fakePlayer{err: errors.New("invalid file path")}
	_, addr := startServer(t, player)
	c := connect(t, addr)
	waitState(t, c)

	c.Play("  ")
	r, err := c.Await(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if r.OK || r.Error != "invalid file path" {
		t.Errorf("expected failed result with message, got %+v", r)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, addr := startServer(t, &fakePlayer{})
	c := connect(t, addr)
	waitState(t, c)

	c.command("player/shuffle")
	r, err := c.Await(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if r.OK || r.Command != "player/shuffle" {
		t.Errorf("expected unknown command to fail, got %+v", r)
	}
}

func TestStatusCommand(t *testing.T) {
	player := &fakePlayer{state: State{State: "paused", Buffered: 3, Capacity: 20}}
	_, addr := startServer(t, player)
	c := connect(t, addr)
	waitState(t, c)

	c.Status()
	st := waitState(t, c)
	if st.State != "paused" || st.Buffered != 3 {
		t.Errorf("unexpected state %+v", st)
	}
	if r, _ := c.Await(2 * time.Second); !r.OK {
		t.Errorf("expected status result ok, got %+v", r)
	}
}

func TestBroadcastEvents(t *testing.T) {
	srv, addr := startServer(t, &fakePlayer{})
	a := connect(t, addr)
	b := connect(t, addr)
	waitState(t, a)
	waitState(t, b)
	waitClients(t, srv, 2)

	srv.NotifyTrackChanged("/music/b.flac")
	srv.NotifyTrackFinished()
	srv.NotifyError(errors.New("audio queue underrun"))

	for _, c := range []*Client{a, b} {
		ev := waitEvent(t, c)
		if tc, ok := ev.Payload.(TrackChanged); ev.Type != TypeTrackChanged || !ok || tc.Path != "/music/b.flac" {
			t.Errorf("expected track_changed, got %+v", ev)
		}
		if ev := waitEvent(t, c); ev.Type != TypeTrackFinished {
			t.Errorf("expected track_finished, got %+v", ev)
		}
		ev = waitEvent(t, c)
		if e, ok := ev.Payload.(ErrorEvent); ev.Type != TypeError || !ok || e.Message != "audio queue underrun" {
			t.Errorf("expected error event, got %+v", ev)
		}
	}
}

func TestClientDisconnect(t *testing.T) {
	srv, addr := startServer(t, &fakePlayer{})
	c := connect(t, addr)
	waitClients(t, srv, 1)

	c.Close()
	waitClients(t, srv, 0)

	if c.IsConnected() {
		t.Error("expected client disconnected")
	}
	if err := c.Pause(); err == nil {
		t.Error("expected send on a closed client to fail")
	}
}

func TestConnectFailsWithoutServer(t *testing.T) {
	c := NewClient(ClientConfig{ServerAddr: "127.0.0.1:1"})
	if err := c.Connect(); err == nil {
		c.Close()
		t.Fatal("expected dial error")
	}
}
