package operators

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/tensor"
)

// registerShapeOps adds shape manipulation operators to the registry.
func (r *Registry) registerShapeOps() {
	r.Register("Reshape", handleReshape)
	r.Register("Transpose", handleTranspose)
	r.Register("Squeeze", handleSqueeze)
	r.Register("Unsqueeze", handleUnsqueeze)
	r.Register("Concat", handleConcat)
	r.Register("Slice", handleSlice)
	r.Register("Gather", handleGather)
	r.Register("Tile", handleTile)
	r.Register("Expand", handleExpand)
}

func handleReshape(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("reshape requires 2 inputs (data, shape), got %d", len(inputs))
	}

	// Target shape comes from the second input. ONNX gives 0 the meaning
	// "copy the corresponding input dimension", which the tensor package
	// does not know about, so resolve it here. -1 passes through and is
	// inferred from the element count.
	inputShape := inputs[0].Shape()
	shapeData := inputs[1].AsInt64()
	newShape := make(tensor.Shape, len(shapeData))
	for i, v := range shapeData {
		if v == 0 {
			if i >= len(inputShape) {
				return nil, fmt.Errorf("reshape: dimension %d copies from input rank %d", i, len(inputShape))
			}
			newShape[i] = inputShape[i]
			continue
		}
		newShape[i] = int(v)
	}

	result, err := tensor.Reshape(inputs[0], newShape)
	if err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleTranspose(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("transpose requires 1 input, got %d", len(inputs))
	}

	axes := attrIntsAsInts(GetAttrInts(node, "perm"))

	result, err := tensor.TransposeAxes(inputs[0], axes...)
	if err != nil {
		return nil, fmt.Errorf("transpose: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleSqueeze(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("squeeze requires at least 1 input, got %d", len(inputs))
	}

	// Opset 13+: axes is the second input; older models use an attribute.
	var axes []int
	if len(inputs) >= 2 && inputs[1] != nil {
		axes = attrIntsAsInts(inputs[1].AsInt64())
	} else {
		axes = attrIntsAsInts(GetAttrInts(node, "axes"))
	}

	result, err := tensor.Squeeze(inputs[0], axes...)
	if err != nil {
		return nil, fmt.Errorf("squeeze: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleUnsqueeze(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("unsqueeze requires at least 1 input, got %d", len(inputs))
	}

	// Opset 13+: axes is the second input; older models use an attribute.
	var axes []int
	if len(inputs) >= 2 && inputs[1] != nil {
		axes = attrIntsAsInts(inputs[1].AsInt64())
	} else {
		axes = attrIntsAsInts(GetAttrInts(node, "axes"))
	}

	if len(axes) == 0 {
		return nil, fmt.Errorf("unsqueeze requires axes")
	}

	result, err := tensor.Unsqueeze(inputs[0], axes...)
	if err != nil {
		return nil, fmt.Errorf("unsqueeze: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleConcat(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("concat requires at least 1 input")
	}

	axis := int(GetAttrInt(node, "axis", 0))

	result, err := tensor.Concat(inputs, axis)
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleSlice(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 3 {
		return nil, fmt.Errorf("slice requires at least 3 inputs (data, starts, ends), got %d", len(inputs))
	}

	starts := inputs[1].AsInt64()
	ends := inputs[2].AsInt64()

	var axes, steps []int64
	if len(inputs) >= 4 && inputs[3] != nil {
		axes = inputs[3].AsInt64()
	}
	if len(inputs) >= 5 && inputs[4] != nil {
		steps = inputs[4].AsInt64()
	}

	result, err := tensor.Slice(inputs[0], starts, ends, axes, steps)
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleGather(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("gather requires 2 inputs (data, indices), got %d", len(inputs))
	}

	axis := int(GetAttrInt(node, "axis", 0))

	result, err := tensor.Gather(inputs[0], inputs[1], axis)
	if err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleTile(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("tile requires 2 inputs (input, repeats), got %d", len(inputs))
	}

	result, err := tensor.Tile(inputs[0], inputs[1].AsInt64())
	if err != nil {
		return nil, fmt.Errorf("tile: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleExpand(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("expand requires 2 inputs (input, shape), got %d", len(inputs))
	}

	shapeData := inputs[1].AsInt64()
	targetShape := make(tensor.Shape, len(shapeData))
	for i, v := range shapeData {
		targetShape[i] = int(v)
	}

	result, err := tensor.Expand(inputs[0], targetShape)
	if err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}
