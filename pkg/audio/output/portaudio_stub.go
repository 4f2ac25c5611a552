//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import "errors"

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio reports that PortAudio was not compiled in
func NewPortAudio() (*PortAudio, error) {
	return nil, errPortAudioDisabled
}

// Open always fails
func (p *PortAudio) Open(cfg StreamConfig, cb Callback, onFinished func()) (Stream, error) {
	return nil, errPortAudioDisabled
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}

// Devices always fails
func (p *PortAudio) Devices() ([]DeviceInfo, error) {
	return nil, errPortAudioDisabled
}
