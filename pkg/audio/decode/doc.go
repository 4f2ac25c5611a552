// ABOUTME: Audio file decoding package with incremental block reads
// ABOUTME: Provides the Source interface and MP3, FLAC, WAV and Ogg Opus sources
// Package decode reads audio files block by block.
//
// Supports: MP3, FLAC, WAV (integer PCM) and Ogg Opus. Opus needs cgo and
// libopusfile; build with the noopus tag to leave it out.
//
// Every Source yields interleaved int32 samples in 24-bit range so the
// rest of the pipeline never sees the file's native bit depth.
//
// Example:
//
//	src, err := decode.Open("track.flac")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//	for {
//	    block, err := src.ReadBlock(2048)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package decode
