//go:build noopus

// ABOUTME: Stub Opus source when built without libopus
// ABOUTME: Returns an error for Ogg Opus files
package decode

import "errors"

func openOpus(path string) (Source, error) {
	return nil, errors.New("built without Opus support (noopus tag)")
}
