// ABOUTME: Tests for player orchestration
// ABOUTME: Plays tone playlists through the wav file output
package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/cadence/pkg/audio/decode"
	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
	"github.com/Resonate-Protocol/cadence/pkg/playback"
)

// toneOpener serves short tones and fails for paths named "bad"
type toneOpener struct {
	duration time.Duration

	mu     sync.Mutex
	opened []string
}

func (o *toneOpener) open(path string) (decode.Source, error) {
	o.mu.Lock()
	o.opened = append(o.opened, path)
	o.mu.Unlock()

	if path == "bad" {
		return nil, errors.New("not audio")
	}
	duration := o.duration
	if duration == 0 {
		duration = 60 * time.Millisecond
	}
	return decode.NewTone(440, 8000, 1, duration), nil
}

func (o *toneOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

func newTestPlayer(t *testing.T, files []string, opener *toneOpener) *Player {
	t.Helper()
	device := output.NewWAVFile(filepath.Join(t.TempDir(), "out.wav"))
	return New(Config{
		Name:      "test",
		Files:     files,
		ExitAtEnd: true,
		Playback: playback.Config{
			BlockSize:  128,
			BufferSize: 4,
			Opener:     opener.open,
		},
	}, device)
}

func runPlayer(t *testing.T, p *Player) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Run(ctx)
	if ctx.Err() != nil {
		t.Fatal("player did not finish the playlist in time")
	}
	return err
}

func TestPlaysWholePlaylist(t *testing.T) {
	opener := &toneOpener{}
	p := newTestPlayer(t, []string{"one", "two", "three"}, opener)

	if err := runPlayer(t, p); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	got := opener.Opened()
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("expected tracks %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("track %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if st := p.Status(); st.State != "stopped" || st.Index != 2 || st.Total != 3 {
		t.Errorf("unexpected final status %+v", st)
	}
}

func TestSkipsUnreadableTracks(t *testing.T) {
	opener := &toneOpener{}
	p := newTestPlayer(t, []string{"bad", "good", "bad"}, opener)

	if err := runPlayer(t, p); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	got := opener.Opened()
	if len(got) != 3 || got[1] != "good" {
		t.Errorf("expected every entry tried, got %v", got)
	}
}

func TestNothingPlayable(t *testing.T) {
	p := newTestPlayer(t, []string{"bad"}, &toneOpener{})

	err := runPlayer(t, p)
	if !errors.Is(err, playback.ErrUnreadableFile) {
		t.Errorf("expected ErrUnreadableFile, got %v", err)
	}
}

func TestEmptyPlaylistExits(t *testing.T) {
	p := newTestPlayer(t, nil, &toneOpener{})
	if err := runPlayer(t, p); err != nil {
		t.Errorf("Run() failed: %v", err)
	}
}

func TestNavigation(t *testing.T) {
	opener := &toneOpener{duration: 10 * time.Second}
	p := newTestPlayer(t, []string{"a", "b"}, opener)
	defer p.Controller().Close()

	if err := p.Previous(); !errors.Is(err, ErrPlaylistEnd) {
		t.Errorf("expected ErrPlaylistEnd at the start, got %v", err)
	}
	if err := p.Next(); err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if err := p.Next(); !errors.Is(err, ErrPlaylistEnd) {
		t.Errorf("expected ErrPlaylistEnd at the end, got %v", err)
	}
	if err := p.Play("c"); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	if st := p.Status(); st.Index != 2 || st.Total != 3 || st.Track != "c" {
		t.Errorf("expected c appended and selected, got %+v", st)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	if err := p.TogglePause(); err != nil {
		t.Errorf("TogglePause() while stopped should replay, got %v", err)
	}
	if p.Controller().State() != playback.Playing {
		t.Errorf("expected playing after replay, got %v", p.Controller().State())
	}
}
