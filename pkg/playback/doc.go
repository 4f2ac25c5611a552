// ABOUTME: Streaming playback engine package
// ABOUTME: Producer goroutine, bounded block queue, real-time sink and controller
// Package playback streams audio files to an output device.
//
// One producer goroutine per session decodes blocks from a decode.Source
// into a bounded BlockQueue. The device's real-time callback drains the
// queue through a Sink that never blocks, locks or allocates. A Controller
// owns the authoritative Stopped/Playing/Paused state and serializes
// Play, Pause, Resume and Stop calls from the UI.
//
// Example:
//
//	dev, _ := output.NewMalgo(24)
//	ctrl := playback.NewController(dev, playback.Config{
//	    OnTrackFinished: func() { fmt.Println("done") },
//	})
//	if err := ctrl.Play("song.flac"); err != nil {
//	    log.Fatal(err)
//	}
package playback
