// Raw tensor operations backing the ONNX operator handlers. Type-specific
// loops are intentionally similar for the hot element-wise paths; the
// indexing operations (Slice, Gather, Tile, Expand) copy elements bytewise
// so one implementation covers every dtype.
//
//nolint:dupl // Type-specific implementations are intentionally similar
package tensor

import (
	"fmt"
	"math"
)

// ReLU applies the ReLU activation function element-wise: max(x, 0).
func ReLU(x *RawTensor) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("ReLU: input tensor is nil")
	}
	result, err := NewRaw(x.shape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("ReLU: %w", err)
	}

	switch x.dtype {
	case Float32:
		in := x.AsFloat32()
		out := result.AsFloat32()
		for i := range in {
			if in[i] > 0 {
				out[i] = in[i]
			}
		}
	case Float64:
		in := x.AsFloat64()
		out := result.AsFloat64()
		for i := range in {
			if in[i] > 0 {
				out[i] = in[i]
			}
		}
	default:
		return nil, fmt.Errorf("ReLU: unsupported dtype %v", x.dtype)
	}
	return result, nil
}

// LeakyReLU applies leaky ReLU: x if x > 0, alpha*x otherwise.
func LeakyReLU(x *RawTensor, alpha float32) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("LeakyReLU: input tensor is nil")
	}
	result, err := NewRaw(x.shape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("LeakyReLU: %w", err)
	}

	switch x.dtype {
	case Float32:
		in := x.AsFloat32()
		out := result.AsFloat32()
		for i := range in {
			if in[i] > 0 {
				out[i] = in[i]
			} else {
				out[i] = alpha * in[i]
			}
		}
	case Float64:
		in := x.AsFloat64()
		out := result.AsFloat64()
		a := float64(alpha)
		for i := range in {
			if in[i] > 0 {
				out[i] = in[i]
			} else {
				out[i] = a * in[i]
			}
		}
	default:
		return nil, fmt.Errorf("LeakyReLU: unsupported dtype %v", x.dtype)
	}
	return result, nil
}

// Sigmoid applies the sigmoid activation function: 1/(1+exp(-x)).
func Sigmoid(x *RawTensor) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Sigmoid: input tensor is nil")
	}
	result, err := NewRaw(x.shape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("Sigmoid: %w", err)
	}

	switch x.dtype {
	case Float32:
		in := x.AsFloat32()
		out := result.AsFloat32()
		for i := range in {
			out[i] = float32(1.0 / (1.0 + math.Exp(float64(-in[i]))))
		}
	case Float64:
		in := x.AsFloat64()
		out := result.AsFloat64()
		for i := range in {
			out[i] = 1.0 / (1.0 + math.Exp(-in[i]))
		}
	default:
		return nil, fmt.Errorf("Sigmoid: unsupported dtype %v", x.dtype)
	}
	return result, nil
}

// Tanh applies the hyperbolic tangent element-wise.
func Tanh(x *RawTensor) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Tanh: input tensor is nil")
	}
	result, err := NewRaw(x.shape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("Tanh: %w", err)
	}

	switch x.dtype {
	case Float32:
		in := x.AsFloat32()
		out := result.AsFloat32()
		for i := range in {
			out[i] = float32(math.Tanh(float64(in[i])))
		}
	case Float64:
		in := x.AsFloat64()
		out := result.AsFloat64()
		for i := range in {
			out[i] = math.Tanh(in[i])
		}
	default:
		return nil, fmt.Errorf("Tanh: unsupported dtype %v", x.dtype)
	}
	return result, nil
}

// Sin applies the sine function element-wise.
func Sin(x *RawTensor) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Sin: input tensor is nil")
	}
	result, err := NewRaw(x.shape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("Sin: %w", err)
	}

	switch x.dtype {
	case Float32:
		in := x.AsFloat32()
		out := result.AsFloat32()
		for i := range in {
			out[i] = float32(math.Sin(float64(in[i])))
		}
	case Float64:
		in := x.AsFloat64()
		out := result.AsFloat64()
		for i := range in {
			out[i] = math.Sin(in[i])
		}
	default:
		return nil, fmt.Errorf("Sin: unsupported dtype %v", x.dtype)
	}
	return result, nil
}

// Cos applies the cosine function element-wise.
func Cos(x *RawTensor) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Cos: input tensor is nil")
	}
	result, err := NewRaw(x.shape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("Cos: %w", err)
	}

	switch x.dtype {
	case Float32:
		in := x.AsFloat32()
		out := result.AsFloat32()
		for i := range in {
			out[i] = float32(math.Cos(float64(in[i])))
		}
	case Float64:
		in := x.AsFloat64()
		out := result.AsFloat64()
		for i := range in {
			out[i] = math.Cos(in[i])
		}
	default:
		return nil, fmt.Errorf("Cos: unsupported dtype %v", x.dtype)
	}
	return result, nil
}

// Reshape returns a copy of x with a new shape. One dimension may be -1 and
// is inferred from the element count.
func Reshape(x *RawTensor, newShape Shape) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Reshape: input tensor is nil")
	}

	totalElements := x.NumElements()
	inferIdx := -1
	product := 1
	for i, dim := range newShape {
		switch {
		case dim == -1:
			if inferIdx >= 0 {
				return nil, fmt.Errorf("Reshape: can only have one -1 dimension")
			}
			inferIdx = i
		case dim <= 0:
			return nil, fmt.Errorf("Reshape: dimensions must be positive, got %d", dim)
		default:
			product *= dim
		}
	}

	actualShape := newShape.Clone()
	if inferIdx >= 0 {
		if product == 0 || totalElements%product != 0 {
			return nil, fmt.Errorf("Reshape: cannot infer dimension for shape %v from %d elements", newShape, totalElements)
		}
		actualShape[inferIdx] = totalElements / product
	}

	if actualShape.NumElements() != totalElements {
		return nil, fmt.Errorf("Reshape: cannot reshape %d elements to shape %v (%d elements)",
			totalElements, actualShape, actualShape.NumElements())
	}

	return x.WithShape(actualShape)
}

// TransposeAxes permutes dimensions according to axes. With no axes given,
// all dimensions are reversed.
func TransposeAxes(x *RawTensor, axes ...int) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("TransposeAxes: input tensor is nil")
	}

	ndim := len(x.shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		return nil, fmt.Errorf("TransposeAxes: axes length %d must match tensor dimensions %d", len(axes), ndim)
	}

	newShape := make(Shape, ndim)
	seen := make([]bool, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim {
			return nil, fmt.Errorf("TransposeAxes: axis %d out of range [0, %d)", ax, ndim)
		}
		if seen[ax] {
			return nil, fmt.Errorf("TransposeAxes: duplicate axis %d", ax)
		}
		seen[ax] = true
		newShape[i] = x.shape[ax]
	}

	result, err := NewRaw(newShape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("TransposeAxes: %w", err)
	}

	elemSize := x.dtype.Size()
	oldStrides := x.shape.ComputeStrides()
	total := newShape.NumElements()
	idx := make([]int, ndim)
	for i := 0; i < total; i++ {
		tmp := i
		for j := ndim - 1; j >= 0; j-- {
			idx[j] = tmp % newShape[j]
			tmp /= newShape[j]
		}
		oldFlat := 0
		for j := 0; j < ndim; j++ {
			oldFlat += idx[j] * oldStrides[axes[j]]
		}
		copy(result.data[i*elemSize:(i+1)*elemSize], x.data[oldFlat*elemSize:(oldFlat+1)*elemSize])
	}
	return result, nil
}

// Squeeze removes dimensions of size 1 at the specified axes, or all
// size-1 dimensions when no axes are given.
func Squeeze(x *RawTensor, axes ...int) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Squeeze: input tensor is nil")
	}

	newShape := make(Shape, 0, len(x.shape))
	if len(axes) == 0 {
		for _, dim := range x.shape {
			if dim != 1 {
				newShape = append(newShape, dim)
			}
		}
	} else {
		axisSet := make(map[int]bool)
		for _, ax := range axes {
			if ax < 0 {
				ax = len(x.shape) + ax
			}
			axisSet[ax] = true
		}
		for i, dim := range x.shape {
			if axisSet[i] {
				if dim != 1 {
					return nil, fmt.Errorf("Squeeze: cannot squeeze axis %d with size %d (must be 1)", i, dim)
				}
			} else {
				newShape = append(newShape, dim)
			}
		}
	}

	if len(newShape) == 0 {
		newShape = Shape{1} // Scalar
	}
	return x.WithShape(newShape)
}

// Unsqueeze adds dimensions of size 1 at the specified axes.
func Unsqueeze(x *RawTensor, axes ...int) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Unsqueeze: input tensor is nil")
	}
	if len(axes) == 0 {
		return nil, fmt.Errorf("Unsqueeze: at least one axis required")
	}

	newNdim := len(x.shape) + len(axes)
	axisSet := make(map[int]bool)
	for _, ax := range axes {
		norm := ax
		if norm < 0 {
			norm = newNdim + norm
		}
		if norm < 0 || norm >= newNdim {
			return nil, fmt.Errorf("Unsqueeze: axis %d out of range [0, %d)", ax, newNdim)
		}
		if axisSet[norm] {
			return nil, fmt.Errorf("Unsqueeze: duplicate axis %d", ax)
		}
		axisSet[norm] = true
	}

	newShape := make(Shape, newNdim)
	oldIdx := 0
	for i := 0; i < newNdim; i++ {
		if axisSet[i] {
			newShape[i] = 1
		} else {
			newShape[i] = x.shape[oldIdx]
			oldIdx++
		}
	}
	return x.WithShape(newShape)
}

// Concat concatenates tensors along the specified axis.
func Concat(tensors []*RawTensor, axis int) (*RawTensor, error) {
	if len(tensors) == 0 {
		return nil, fmt.Errorf("Concat: no tensors provided")
	}
	if len(tensors) == 1 {
		return tensors[0].Clone(), nil
	}

	first := tensors[0]
	ndim := len(first.shape)
	if axis < 0 {
		axis = ndim + axis
	}
	if axis < 0 || axis >= ndim {
		return nil, fmt.Errorf("Concat: axis %d out of range for rank %d", axis, ndim)
	}

	outShape := first.shape.Clone()
	for i, t := range tensors[1:] {
		if t.dtype != first.dtype {
			return nil, fmt.Errorf("Concat: dtype mismatch at tensor %d: %v vs %v", i+1, t.dtype, first.dtype)
		}
		if len(t.shape) != ndim {
			return nil, fmt.Errorf("Concat: rank mismatch at tensor %d: %d vs %d", i+1, len(t.shape), ndim)
		}
		for d := 0; d < ndim; d++ {
			if d != axis && t.shape[d] != first.shape[d] {
				return nil, fmt.Errorf("Concat: shape mismatch at tensor %d dimension %d: %d vs %d",
					i+1, d, t.shape[d], first.shape[d])
			}
		}
		outShape[axis] += t.shape[axis]
	}

	result, err := NewRaw(outShape, first.dtype)
	if err != nil {
		return nil, fmt.Errorf("Concat: %w", err)
	}

	// Copy block-wise: for each outer index, append each tensor's
	// (axisDim * inner) contiguous span.
	elemSize := first.dtype.Size()
	outer := 1
	for d := 0; d < axis; d++ {
		outer *= outShape[d]
	}
	inner := 1
	for d := axis + 1; d < ndim; d++ {
		inner *= outShape[d]
	}

	outRow := outShape[axis] * inner * elemSize
	dstOff := 0
	for o := 0; o < outer; o++ {
		rowStart := dstOff
		for _, t := range tensors {
			span := t.shape[axis] * inner * elemSize
			srcOff := o * span
			copy(result.data[rowStart:rowStart+span], t.data[srcOff:srcOff+span])
			rowStart += span
		}
		dstOff += outRow
	}
	return result, nil
}

// Slice extracts a strided sub-tensor. starts/ends/axes/steps follow the
// ONNX Slice operator: negative indices count from the end, out-of-range
// bounds are clamped, axes defaults to [0..len(starts)), steps defaults to 1.
//
//nolint:gocognit,gocyclo,cyclop // index normalization is a case-by-case affair
func Slice(x *RawTensor, starts, ends, axes, steps []int64) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Slice: input tensor is nil")
	}
	if len(starts) != len(ends) {
		return nil, fmt.Errorf("Slice: starts length %d != ends length %d", len(starts), len(ends))
	}
	ndim := len(x.shape)

	if len(axes) == 0 {
		axes = make([]int64, len(starts))
		for i := range axes {
			axes[i] = int64(i)
		}
	}
	if len(axes) != len(starts) {
		return nil, fmt.Errorf("Slice: axes length %d != starts length %d", len(axes), len(starts))
	}
	if len(steps) == 0 {
		steps = make([]int64, len(starts))
		for i := range steps {
			steps[i] = 1
		}
	}
	if len(steps) != len(starts) {
		return nil, fmt.Errorf("Slice: steps length %d != starts length %d", len(steps), len(starts))
	}

	// Per-dimension effective start and step (end folded into count).
	effStart := make([]int, ndim)
	effStep := make([]int, ndim)
	outShape := make(Shape, ndim)
	for d := 0; d < ndim; d++ {
		effStep[d] = 1
		outShape[d] = x.shape[d]
	}

	for i, axRaw := range axes {
		ax := int(axRaw)
		if ax < 0 {
			ax += ndim
		}
		if ax < 0 || ax >= ndim {
			return nil, fmt.Errorf("Slice: axis %d out of range for rank %d", axRaw, ndim)
		}
		dim := int64(x.shape[ax])
		step := steps[i]
		if step == 0 {
			return nil, fmt.Errorf("Slice: step cannot be 0 (axis %d)", ax)
		}

		start := starts[i]
		if start < 0 {
			start += dim
		}
		end := ends[i]
		if end < 0 {
			end += dim
		}

		var count int64
		if step > 0 {
			start = clampInt64(start, 0, dim)
			end = clampInt64(end, 0, dim)
			if end > start {
				count = (end - start + step - 1) / step
			}
		} else {
			start = clampInt64(start, 0, dim-1)
			end = clampInt64(end, -1, dim-1)
			if start > end {
				count = (start - end - step - 1) / (-step)
			}
		}
		if count <= 0 {
			return nil, fmt.Errorf("Slice: empty result on axis %d (start %d, end %d, step %d)",
				ax, starts[i], ends[i], step)
		}
		effStart[ax] = int(start)
		effStep[ax] = int(step)
		outShape[ax] = int(count)
	}

	result, err := NewRaw(outShape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("Slice: %w", err)
	}

	elemSize := x.dtype.Size()
	inStrides := x.shape.ComputeStrides()
	total := outShape.NumElements()
	idx := make([]int, ndim)
	for i := 0; i < total; i++ {
		tmp := i
		for j := ndim - 1; j >= 0; j-- {
			idx[j] = tmp % outShape[j]
			tmp /= outShape[j]
		}
		srcFlat := 0
		for j := 0; j < ndim; j++ {
			srcFlat += (effStart[j] + idx[j]*effStep[j]) * inStrides[j]
		}
		copy(result.data[i*elemSize:(i+1)*elemSize], x.data[srcFlat*elemSize:(srcFlat+1)*elemSize])
	}
	return result, nil
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Gather selects slices of x along axis using an integer index tensor,
// following ONNX Gather semantics: the output shape is
// x.shape[:axis] ++ indices.shape ++ x.shape[axis+1:].
func Gather(x, indices *RawTensor, axis int) (*RawTensor, error) {
	if x == nil || indices == nil {
		return nil, fmt.Errorf("Gather: input tensors cannot be nil")
	}
	ndim := len(x.shape)
	if axis < 0 {
		axis += ndim
	}
	if axis < 0 || axis >= ndim {
		return nil, fmt.Errorf("Gather: axis %d out of range for rank %d", axis, ndim)
	}

	idx, err := indexValues(indices)
	if err != nil {
		return nil, fmt.Errorf("Gather: %w", err)
	}

	axisDim := x.shape[axis]
	for i, v := range idx {
		if v < 0 {
			v += axisDim
			idx[i] = v
		}
		if v < 0 || v >= axisDim {
			return nil, fmt.Errorf("Gather: index %d out of range [0, %d)", v, axisDim)
		}
	}

	outShape := make(Shape, 0, ndim-1+len(indices.shape))
	outShape = append(outShape, x.shape[:axis]...)
	outShape = append(outShape, indices.shape...)
	outShape = append(outShape, x.shape[axis+1:]...)

	result, err := NewRaw(outShape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("Gather: %w", err)
	}

	elemSize := x.dtype.Size()
	outer := 1
	for d := 0; d < axis; d++ {
		outer *= x.shape[d]
	}
	inner := 1
	for d := axis + 1; d < ndim; d++ {
		inner *= x.shape[d]
	}

	span := inner * elemSize
	for o := 0; o < outer; o++ {
		srcBase := o * axisDim * span
		dstBase := o * len(idx) * span
		for j, v := range idx {
			src := srcBase + v*span
			dst := dstBase + j*span
			copy(result.data[dst:dst+span], x.data[src:src+span])
		}
	}
	return result, nil
}

// indexValues flattens an integer tensor into []int.
func indexValues(t *RawTensor) ([]int, error) {
	switch t.dtype {
	case Int32:
		in := t.AsInt32()
		out := make([]int, len(in))
		for i, v := range in {
			out[i] = int(v)
		}
		return out, nil
	case Int64:
		in := t.AsInt64()
		out := make([]int, len(in))
		for i, v := range in {
			out[i] = int(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("index tensor must be int32 or int64, got %v", t.dtype)
	}
}

// Tile repeats the tensor along each axis. repeats must have one entry per
// dimension.
func Tile(x *RawTensor, repeats []int64) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Tile: input tensor is nil")
	}
	ndim := len(x.shape)
	if len(repeats) != ndim {
		return nil, fmt.Errorf("Tile: repeats length %d must match tensor rank %d", len(repeats), ndim)
	}

	outShape := make(Shape, ndim)
	for d, rep := range repeats {
		if rep <= 0 {
			return nil, fmt.Errorf("Tile: repeats must be positive, got %d at axis %d", rep, d)
		}
		outShape[d] = x.shape[d] * int(rep)
	}

	result, err := NewRaw(outShape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("Tile: %w", err)
	}

	elemSize := x.dtype.Size()
	inStrides := x.shape.ComputeStrides()
	total := outShape.NumElements()
	idx := make([]int, ndim)
	for i := 0; i < total; i++ {
		tmp := i
		for j := ndim - 1; j >= 0; j-- {
			idx[j] = tmp % outShape[j]
			tmp /= outShape[j]
		}
		srcFlat := 0
		for j := 0; j < ndim; j++ {
			srcFlat += (idx[j] % x.shape[j]) * inStrides[j]
		}
		copy(result.data[i*elemSize:(i+1)*elemSize], x.data[srcFlat*elemSize:(srcFlat+1)*elemSize])
	}
	return result, nil
}

// Expand broadcasts the tensor to the shape produced by NumPy-style
// broadcasting between its own shape and target.
func Expand(x *RawTensor, target Shape) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Expand: input tensor is nil")
	}

	outShape, _, err := BroadcastShapes(x.shape, target)
	if err != nil {
		return nil, fmt.Errorf("Expand: %w", err)
	}
	if outShape.Equal(x.shape) {
		return x.Clone(), nil
	}

	result, err := NewRaw(outShape, x.dtype)
	if err != nil {
		return nil, fmt.Errorf("Expand: %w", err)
	}

	ndim := len(outShape)
	// Source strides padded to the output rank, zeroed on broadcast dims.
	srcStrides := make([]int, ndim)
	inStrides := x.shape.ComputeStrides()
	offset := ndim - len(x.shape)
	for d := 0; d < len(x.shape); d++ {
		if x.shape[d] != 1 {
			srcStrides[offset+d] = inStrides[d]
		}
	}

	elemSize := x.dtype.Size()
	total := outShape.NumElements()
	idx := make([]int, ndim)
	for i := 0; i < total; i++ {
		tmp := i
		for j := ndim - 1; j >= 0; j-- {
			idx[j] = tmp % outShape[j]
			tmp /= outShape[j]
		}
		srcFlat := 0
		for j := 0; j < ndim; j++ {
			srcFlat += idx[j] * srcStrides[j]
		}
		copy(result.data[i*elemSize:(i+1)*elemSize], x.data[srcFlat*elemSize:(srcFlat+1)*elemSize])
	}
	return result, nil
}

// Cast converts the tensor to another numeric dtype. Float to integer
// conversion truncates toward zero.
func Cast(x *RawTensor, dtype DataType) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Cast: input tensor is nil")
	}
	if x.dtype == dtype {
		return x.Clone(), nil
	}

	switch dtype {
	case Float32:
		return castToFloat32(x)
	case Float64:
		return castToFloat64(x)
	case Int32:
		return castToInt32(x)
	case Int64:
		return castToInt64(x)
	default:
		return nil, fmt.Errorf("Cast: unsupported target dtype %v", dtype)
	}
}

func castToFloat32(x *RawTensor) (*RawTensor, error) {
	result, err := NewRaw(x.shape, Float32)
	if err != nil {
		return nil, fmt.Errorf("Cast: %w", err)
	}
	out := result.AsFloat32()
	switch x.dtype {
	case Float64:
		for i, v := range x.AsFloat64() {
			out[i] = float32(v)
		}
	case Int32:
		for i, v := range x.AsInt32() {
			out[i] = float32(v)
		}
	case Int64:
		for i, v := range x.AsInt64() {
			out[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("Cast: unsupported source dtype %v", x.dtype)
	}
	return result, nil
}

func castToFloat64(x *RawTensor) (*RawTensor, error) {
	result, err := NewRaw(x.shape, Float64)
	if err != nil {
		return nil, fmt.Errorf("Cast: %w", err)
	}
	out := result.AsFloat64()
	switch x.dtype {
	case Float32:
		for i, v := range x.AsFloat32() {
			out[i] = float64(v)
		}
	case Int32:
		for i, v := range x.AsInt32() {
			out[i] = float64(v)
		}
	case Int64:
		for i, v := range x.AsInt64() {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("Cast: unsupported source dtype %v", x.dtype)
	}
	return result, nil
}

func castToInt32(x *RawTensor) (*RawTensor, error) {
	result, err := NewRaw(x.shape, Int32)
	if err != nil {
		return nil, fmt.Errorf("Cast: %w", err)
	}
	out := result.AsInt32()
	switch x.dtype {
	case Float32:
		for i, v := range x.AsFloat32() {
			out[i] = int32(v)
		}
	case Float64:
		for i, v := range x.AsFloat64() {
			out[i] = int32(v)
		}
	case Int64:
		for i, v := range x.AsInt64() {
			out[i] = int32(v)
		}
	default:
		return nil, fmt.Errorf("Cast: unsupported source dtype %v", x.dtype)
	}
	return result, nil
}

func castToInt64(x *RawTensor) (*RawTensor, error) {
	result, err := NewRaw(x.shape, Int64)
	if err != nil {
		return nil, fmt.Errorf("Cast: %w", err)
	}
	out := result.AsInt64()
	switch x.dtype {
	case Float32:
		for i, v := range x.AsFloat32() {
			out[i] = int64(v)
		}
	case Float64:
		for i, v := range x.AsFloat64() {
			out[i] = int64(v)
		}
	case Int32:
		for i, v := range x.AsInt32() {
			out[i] = int64(v)
		}
	default:
		return nil, fmt.Errorf("Cast: unsupported source dtype %v", x.dtype)
	}
	return result, nil
}
