// ABOUTME: Source interface and file opener
// ABOUTME: Dispatches audio files to a decoder by extension
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
	"github.com/charmbracelet/log"
)

// ErrUnreadableFile reports a path that cannot be opened or decoded
var ErrUnreadableFile = errors.New("unreadable audio file")

// Source yields decoded audio one block at a time
type Source interface {
	// ReadBlock returns between 1 and frames frames, or an empty block
	// and io.EOF once the stream is exhausted. The built-in sources only
	// return fewer than frames frames for the last block; the playback
	// engine joins short reads from other sources into full blocks.
	ReadBlock(frames int) (audio.Block, error)

	// Format describes the samples ReadBlock returns
	Format() audio.Format

	// Close releases the underlying file
	Close() error
}

// Opener opens a Source for a path
type Opener func(path string) (Source, error)

var openers = map[string]Opener{
	".mp3":  openMP3,
	".flac": openFLAC,
	".fla":  openFLAC,
	".wav":  openWAV,
	".wave": openWAV,
	".opus": openOpus,
	".ogg":  openOpus,
}

// Extensions lists the file extensions Open understands
func Extensions() []string {
	exts := make([]string, 0, len(openers))
	for ext := range openers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether path has a decodable extension
func Supported(path string) bool {
	_, ok := openers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Open opens an audio file for incremental decoding. Every failure wraps
// ErrUnreadableFile.
func Open(path string) (Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrUnreadableFile)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadableFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	open, ok := openers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported audio format %q (supported: %s)",
			ErrUnreadableFile, ext, strings.Join(Extensions(), ", "))
	}

	src, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableFile, path, err)
	}

	log.Debug("Opened audio source", "path", path, "format", src.Format())
	return src, nil
}

// Title derives a display title from a file path
func Title(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
