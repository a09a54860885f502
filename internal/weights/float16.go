package weights

import (
	"encoding/binary"
	"math"

	"github.com/snac-ml/snacx/internal/parallel"
)

// f16ToF32 converts an IEEE 754 half-precision value.
func f16ToF32(bits uint16) float32 {
	sign := uint32(bits>>15) << 31
	exp := uint32(bits>>10) & 0x1f
	mant := uint32(bits) & 0x3ff

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: renormalize.
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3ff
		return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
	case 0x1f:
		// Inf or NaN.
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
	}
}

// bf16ToF32 converts a bfloat16 value. bfloat16 is the top half of a
// float32, so the conversion is a shift.
func bf16ToF32(bits uint16) float32 {
	return math.Float32frombits(uint32(bits) << 16)
}

// DecodeF16 converts little-endian float16 bytes to float32 values.
func DecodeF16(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	parallel.Chunks(n, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = f16ToF32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	}, parallel.DefaultConfig())
	return out
}

// DecodeBF16 converts little-endian bfloat16 bytes to float32 values.
func DecodeBF16(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	parallel.Chunks(n, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = bf16ToF32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	}, parallel.DefaultConfig())
	return out
}
