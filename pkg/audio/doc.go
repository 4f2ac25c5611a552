// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Block types and sample conversion functions
// Package audio provides the PCM types shared by the playback engine.
//
// Samples travel through the pipeline as int32 values in the signed 24-bit
// range regardless of the source bit depth:
//   - Format: Describes a decoded stream (codec, sample rate, channels, bit depth)
//   - Block: A run of interleaved frames handed from decoder to output
//
// Example:
//
//	block := audio.NewBlock(2048, 2)
//	block.Samples[0] = audio.SampleFromInt16(sample16)
package audio
