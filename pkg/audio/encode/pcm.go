// ABOUTME: PCM sample encoder
// ABOUTME: Encodes int32 samples to 16, 24 or 32-bit little-endian bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/cadence/pkg/audio"
)

// SampleFormat is a little-endian signed PCM byte layout
type SampleFormat int

const (
	S16LE SampleFormat = iota
	S24LE
	S32LE
)

// ForBitDepth returns the sample format for a bit depth
func ForBitDepth(bitDepth int) (SampleFormat, error) {
	switch bitDepth {
	case 16:
		return S16LE, nil
	case 24:
		return S24LE, nil
	case 32:
		return S32LE, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", bitDepth)
	}
}

func (f SampleFormat) String() string {
	switch f {
	case S16LE:
		return "s16le"
	case S24LE:
		return "s24le"
	case S32LE:
		return "s32le"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// BytesPerSample returns the encoded size of one sample
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case S16LE:
		return 2
	case S24LE:
		return 3
	default:
		return 4
	}
}

// Put encodes as many samples as fit into dst and returns the bytes written.
func (f SampleFormat) Put(dst []byte, samples []int32) int {
	size := f.BytesPerSample()
	n := len(dst) / size
	if n > len(samples) {
		n = len(samples)
	}

	switch f {
	case S16LE:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(audio.SampleToInt16(samples[i])))
		}
	case S24LE:
		for i := 0; i < n; i++ {
			b := audio.SampleTo24Bit(samples[i])
			dst[i*3] = b[0]
			dst[i*3+1] = b[1]
			dst[i*3+2] = b[2]
		}
	default:
		// Left-justify 24-bit samples in 32-bit container
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(samples[i]<<8))
		}
	}

	return n * size
}
