// ABOUTME: Sample encoder package for device byte formats
// ABOUTME: Packs 24-bit-range int32 samples into little-endian PCM without allocating
// Package encode converts engine samples into the byte layouts output
// devices consume.
//
// Supports: signed 16-bit, packed 24-bit and left-justified 32-bit PCM.
//
// All encoders accept int32 samples in 24-bit range and write into a
// caller-owned buffer, so they are safe to call from an audio callback.
//
// Example:
//
//	buf := make([]byte, len(samples)*encode.S16LE.BytesPerSample())
//	n := encode.S16LE.Put(buf, samples)
package encode
