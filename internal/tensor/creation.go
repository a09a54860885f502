package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// FullRaw creates a tensor filled with a constant value.
func FullRaw(shape Shape, value float32, dtype DataType) (*RawTensor, error) {
	r, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("FullRaw: %w", err)
	}

	switch dtype {
	case Float32:
		out := r.AsFloat32()
		for i := range out {
			out[i] = value
		}
	case Float64:
		out := r.AsFloat64()
		v := float64(value)
		for i := range out {
			out[i] = v
		}
	case Int32:
		out := r.AsInt32()
		v := int32(value)
		for i := range out {
			out[i] = v
		}
	case Int64:
		out := r.AsInt64()
		v := int64(value)
		for i := range out {
			out[i] = v
		}
	case Uint8:
		out := r.AsUint8()
		v := uint8(value)
		for i := range out {
			out[i] = v
		}
	case Bool:
		out := r.AsBool()
		v := value != 0
		for i := range out {
			out[i] = v
		}
	default:
		return nil, fmt.Errorf("FullRaw: unsupported dtype %v", dtype)
	}
	return r, nil
}

// RandnRaw creates a tensor with values drawn from a standard normal
// distribution using the Box-Muller transform. Float types only.
// Note: uses math/rand (not crypto/rand), which is intentional for
// statistical sampling.
func RandnRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	r, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("RandnRaw: %w", err)
	}

	switch dtype {
	case Float32:
		out := r.AsFloat32()
		for i := 0; i < len(out); i += 2 {
			u1 := rand.Float64() //nolint:gosec // G404: statistical sampling uses math/rand intentionally
			u2 := rand.Float64() //nolint:gosec // G404: statistical sampling uses math/rand intentionally
			z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
			z1 := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
			out[i] = float32(z0)
			if i+1 < len(out) {
				out[i+1] = float32(z1)
			}
		}
	case Float64:
		out := r.AsFloat64()
		for i := 0; i < len(out); i += 2 {
			u1 := rand.Float64() //nolint:gosec // G404: statistical sampling uses math/rand intentionally
			u2 := rand.Float64() //nolint:gosec // G404: statistical sampling uses math/rand intentionally
			z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
			z1 := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
			out[i] = z0
			if i+1 < len(out) {
				out[i+1] = z1
			}
		}
	default:
		return nil, fmt.Errorf("RandnRaw: unsupported dtype %v (float types only)", dtype)
	}
	return r, nil
}

// RandintRaw creates a tensor with uniform random integers in [low, high).
// Integer types only.
func RandintRaw(shape Shape, low, high int64, dtype DataType) (*RawTensor, error) {
	if high <= low {
		return nil, fmt.Errorf("RandintRaw: invalid range [%d, %d)", low, high)
	}
	r, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("RandintRaw: %w", err)
	}

	span := high - low
	switch dtype {
	case Int32:
		out := r.AsInt32()
		for i := range out {
			out[i] = int32(low + rand.Int63n(span)) //nolint:gosec // G404: statistical sampling uses math/rand intentionally
		}
	case Int64:
		out := r.AsInt64()
		for i := range out {
			out[i] = low + rand.Int63n(span) //nolint:gosec // G404: statistical sampling uses math/rand intentionally
		}
	default:
		return nil, fmt.Errorf("RandintRaw: unsupported dtype %v (integer types only)", dtype)
	}
	return r, nil
}
