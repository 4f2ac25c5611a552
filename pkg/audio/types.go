// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, PCM blocks and sample conversions
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz/%dch/%dbit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
}

// Block is a run of interleaved PCM frames in the 24-bit range.
// A block is owned by exactly one stage of the pipeline at a time.
type Block struct {
	Samples  []int32
	Channels int
}

// NewBlock allocates a zeroed block holding frames frames.
func NewBlock(frames, channels int) Block {
	return Block{Samples: make([]int32, frames*channels), Channels: channels}
}

// Frames returns the number of complete frames in the block.
func (b Block) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Empty reports whether the block carries no frames.
func (b Block) Empty() bool {
	return len(b.Samples) == 0
}

// Clamp24 limits a sample to the signed 24-bit range
func Clamp24(sample int64) int32 {
	if sample > Max24Bit {
		return Max24Bit
	}
	if sample < Min24Bit {
		return Min24Bit
	}
	return int32(sample)
}

// SampleFromFloat32 converts a [-1, 1] float sample to the 24-bit range
func SampleFromFloat32(sample float32) int32 {
	return Clamp24(int64(float64(sample) * Max24Bit))
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleFromBitDepth scales a signed integer sample of the given depth to the 24-bit range
func SampleFromBitDepth(sample int, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return int32(sample)
	case bitDepth < 24:
		return int32(sample) << (24 - bitDepth)
	default:
		return int32(sample >> (bitDepth - 24))
	}
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
