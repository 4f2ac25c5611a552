// ABOUTME: Audio output package for callback-driven playback
// ABOUTME: Provides Device/Stream interfaces with malgo, oto, PortAudio and WAV backends
// Package output opens real-time audio streams.
//
// A stream repeatedly asks its Callback for one block of BlockSize frames.
// The callback reports Continue, Complete or Abort; the device calls
// onFinished once the stream has ended on its own. Renderer adapts device
// period sizes to the fixed block size and is shared by every backend.
//
// Backends: malgo (default), oto (fixed format), PortAudio (build with
// -tags portaudio) and a paced WAV file writer for headless use.
//
// Example:
//
//	dev, err := output.NewMalgo(24)
//	stream, err := dev.Open(output.StreamConfig{
//	    SampleRate: 48000,
//	    Channels:   2,
//	    BlockSize:  2048,
//	}, callback, onFinished)
//	err = stream.Start()
package output
