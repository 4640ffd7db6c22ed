package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Message tags for binary WebSocket messages.
const (
	TagFrame      byte = 0x01
	TagAttributes byte = 0x02
)

// ErrShortMessage is returned when a binary message is truncated.
var ErrShortMessage = errors.New("short message")

// AppendFrame encodes f as: tag, f32 elapsed, u32 count, count*3 f32 positions.
// All values are little-endian.
func AppendFrame(dst []byte, f *Frame) []byte {
	dst = append(dst, TagFrame)
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(f.Elapsed)))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(f.Len()))
	return appendFloats(dst, f.Positions[:3*f.Len()])
}

// AppendAttributes encodes a as: tag, u32 count, 3 f32 background,
// count*3 f32 colors, count f32 sizes.
func AppendAttributes(dst []byte, a *Attributes) []byte {
	n := a.Len()
	dst = append(dst, TagAttributes)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(n))
	dst = appendFloats(dst, []float32{
		float32(a.Background.R),
		float32(a.Background.G),
		float32(a.Background.B),
	})
	dst = appendFloats(dst, a.Colors[:3*n])
	return appendFloats(dst, a.Sizes)
}

// DecodeFrame parses a message produced by AppendFrame into f, reusing its buffer.
func DecodeFrame(data []byte, f *Frame) error {
	if len(data) < 9 || data[0] != TagFrame {
		return fmt.Errorf("frame header: %w", ErrShortMessage)
	}
	f.Elapsed = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[1:])))
	n := int(binary.LittleEndian.Uint32(data[5:]))

	body := data[9:]
	if len(body) < n*12 {
		return fmt.Errorf("frame of %d particles: %w", n, ErrShortMessage)
	}
	f.Positions = readFloats(f.Positions[:0], body, 3*n)
	return nil
}

func appendFloats(dst []byte, vs []float32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func readFloats(dst []float32, src []byte, n int) []float32 {
	for i := 0; i < n; i++ {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:])))
	}
	return dst
}
