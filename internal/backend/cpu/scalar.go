package cpu

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/tensor"
)

// Scalar operations - element-wise operations with a scalar value.

// AddScalar adds a scalar value to each element of the tensor.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(fmt.Sprintf("addScalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		in := x.AsFloat32()
		out := result.AsFloat32()
		s := float32(scalar)
		for i := range in {
			out[i] = in[i] + s
		}
	case tensor.Float64:
		in := x.AsFloat64()
		out := result.AsFloat64()
		for i := range in {
			out[i] = in[i] + scalar
		}
	case tensor.Int32:
		in := x.AsInt32()
		out := result.AsInt32()
		s := int32(scalar)
		for i := range in {
			out[i] = in[i] + s
		}
	case tensor.Int64:
		in := x.AsInt64()
		out := result.AsInt64()
		s := int64(scalar)
		for i := range in {
			out[i] = in[i] + s
		}
	default:
		panic(fmt.Sprintf("addScalar: unsupported dtype %v", x.DType()))
	}
	return result
}

// MulScalar multiplies each element of the tensor by a scalar value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(fmt.Sprintf("mulScalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		in := x.AsFloat32()
		out := result.AsFloat32()
		s := float32(scalar)
		for i := range in {
			out[i] = in[i] * s
		}
	case tensor.Float64:
		in := x.AsFloat64()
		out := result.AsFloat64()
		for i := range in {
			out[i] = in[i] * scalar
		}
	case tensor.Int32:
		in := x.AsInt32()
		out := result.AsInt32()
		s := int32(scalar)
		for i := range in {
			out[i] = in[i] * s
		}
	case tensor.Int64:
		in := x.AsInt64()
		out := result.AsInt64()
		s := int64(scalar)
		for i := range in {
			out[i] = in[i] * s
		}
	default:
		panic(fmt.Sprintf("mulScalar: unsupported dtype %v", x.DType()))
	}
	return result
}
