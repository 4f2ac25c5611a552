// ABOUTME: Ordered track list with a current position
// ABOUTME: Expands command-line paths and globs into playable files
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Resonate-Protocol/cadence/pkg/audio/decode"
	"github.com/charmbracelet/log"
)

// ErrPlaylistEnd is returned when moving past either end of the playlist
var ErrPlaylistEnd = errors.New("no more tracks in playlist")

// Playlist is a thread-safe list of tracks
type Playlist struct {
	mu      sync.Mutex
	entries []string
	index   int
}

// NewPlaylist creates a playlist positioned at the first entry
func NewPlaylist(entries []string) *Playlist {
	return &Playlist{entries: append([]string(nil), entries...)}
}

// Current returns the entry at the current position
func (p *Playlist) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index >= len(p.entries) {
		return "", false
	}
	return p.entries[p.index], true
}

// Next advances one entry. At the end it stays put and reports false.
func (p *Playlist) Next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index+1 >= len(p.entries) {
		return "", false
	}
	p.index++
	return p.entries[p.index], true
}

// Previous steps back one entry. At the start it stays put and reports false.
func (p *Playlist) Previous() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index == 0 || len(p.entries) == 0 {
		return "", false
	}
	p.index--
	return p.entries[p.index], true
}

// Select moves to path, appending it if it is not in the playlist
func (p *Playlist) Select(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.entries {
		if e == path {
			p.index = i
			return
		}
	}
	p.entries = append(p.entries, path)
	p.index = len(p.entries) - 1
}

// Position returns the current index and the number of entries
func (p *Playlist) Position() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index, len(p.entries)
}

// ExpandPaths resolves globs and directories into supported audio files.
// Plain file arguments are kept even if their extension is unknown so the
// player can report them as unreadable.
func ExpandPaths(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}

		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.IsDir() {
				files = append(files, m)
				continue
			}

			dirFiles, err := supportedIn(m)
			if err != nil {
				return nil, err
			}
			files = append(files, dirFiles...)
		}
	}
	return files, nil
}

func supportedIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || !decode.Supported(path) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	log.Debug("Expanded directory", "dir", dir, "files", len(files))
	return files, nil
}
