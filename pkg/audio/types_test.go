// ABOUTME: Tests for audio types
// ABOUTME: Covers block geometry and sample conversion functions
package audio

import "testing"

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive", 100 << 8, 100},
		{"negative", -100 << 8, -100},
		{"24bit positive", 1000000, 3906}, // 1000000 >> 8 = 3906
		{"24bit negative", -1000000, -3907},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleTo24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected [3]byte
	}{
		{"zero", 0, [3]byte{0, 0, 0}},
		{"positive", 0x123456, [3]byte{0x56, 0x34, 0x12}},
		{"negative", -256, [3]byte{0x00, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleTo24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleFromBitDepth(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		depth    int
		expected int32
	}{
		{"8bit", 100, 8, 100 << 16},
		{"16bit", -100, 16, -100 << 8},
		{"24bit", 123456, 24, 123456},
		{"32bit", 1 << 20, 32, 1 << 12},
		{"16bit min", -32768, 16, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromBitDepth(tt.input, tt.depth)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestClamp24(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected int32
	}{
		{"in range", 42, 42},
		{"above", Max24Bit + 10, Max24Bit},
		{"below", Min24Bit - 10, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp24(tt.input); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestSampleFromFloat32(t *testing.T) {
	if got := SampleFromFloat32(1.0); got != Max24Bit {
		t.Errorf("expected %d for full scale, got %d", Max24Bit, got)
	}
	if got := SampleFromFloat32(2.0); got != Max24Bit {
		t.Errorf("expected clamp to %d, got %d", Max24Bit, got)
	}
	if got := SampleFromFloat32(0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestBlockFrames(t *testing.T) {
	tests := []struct {
		name     string
		block    Block
		expected int
	}{
		{"stereo", NewBlock(4, 2), 4},
		{"mono", NewBlock(3, 1), 3},
		{"empty", Block{Channels: 2}, 0},
		{"no channels", Block{Samples: make([]int32, 4)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.block.Frames(); got != tt.expected {
				t.Errorf("expected %d frames, got %d", tt.expected, got)
			}
		})
	}

	if !(Block{Channels: 2}).Empty() {
		t.Error("block without samples should be empty")
	}
}
