package operators

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/tensor"
)

// registerUtilityOps adds utility operators to the registry.
func (r *Registry) registerUtilityOps() {
	r.Register("Identity", handleIdentity)
	r.Register("Constant", handleConstant)
	r.Register("Cast", handleCast)
	r.Register("ConstantOfShape", handleConstantOfShape)
	r.Register("Shape", handleShape)
	r.Register("Size", handleSize)
}

func handleIdentity(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("identity requires 1 input, got %d", len(inputs))
	}
	return inputs, nil
}

func handleConstant(_ *Context, node *Node, _ []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	for i := range node.Attributes {
		attr := &node.Attributes[i]
		switch attr.Name {
		case "value":
			if attr.Tensor == nil {
				return nil, fmt.Errorf("constant: empty value tensor")
			}
			return []*tensor.RawTensor{attr.Tensor}, nil
		case "value_float":
			t, err := tensor.FromFloat32(tensor.Shape{1}, []float32{attr.F})
			if err != nil {
				return nil, fmt.Errorf("constant value_float: %w", err)
			}
			return []*tensor.RawTensor{t}, nil
		case "value_int":
			t, err := tensor.FromInt64(tensor.Shape{1}, []int64{attr.I})
			if err != nil {
				return nil, fmt.Errorf("constant value_int: %w", err)
			}
			return []*tensor.RawTensor{t}, nil
		case "value_floats":
			t, err := tensor.FromFloat32(tensor.Shape{len(attr.Floats)}, attr.Floats)
			if err != nil {
				return nil, fmt.Errorf("constant value_floats: %w", err)
			}
			return []*tensor.RawTensor{t}, nil
		case "value_ints":
			t, err := tensor.FromInt64(tensor.Shape{len(attr.Ints)}, attr.Ints)
			if err != nil {
				return nil, fmt.Errorf("constant value_ints: %w", err)
			}
			return []*tensor.RawTensor{t}, nil
		}
	}
	return nil, fmt.Errorf("constant: no value attribute found")
}

func handleCast(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("cast requires 1 input, got %d", len(inputs))
	}

	to := GetAttrInt(node, "to", TensorProtoFloat)
	dtype, ok := dtypeFromProto(to)
	if !ok {
		return nil, fmt.Errorf("cast: unsupported target type %d", to)
	}

	result, err := tensor.Cast(inputs[0], dtype)
	if err != nil {
		return nil, fmt.Errorf("cast: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleConstantOfShape(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("constantOfShape requires 1 input (shape), got %d", len(inputs))
	}

	shapeData := inputs[0].AsInt64()
	targetShape := make(tensor.Shape, len(shapeData))
	for i, v := range shapeData {
		targetShape[i] = int(v)
	}

	// Fill value is an optional single-element tensor attribute; the
	// default is float32 zero.
	value := float32(0)
	dtype := tensor.Float32
	if v := GetAttrTensor(node, "value"); v != nil && v.NumElements() > 0 {
		dtype = v.DType()
		switch dtype {
		case tensor.Float32:
			value = v.AsFloat32()[0]
		case tensor.Int32:
			value = float32(v.AsInt32()[0])
		case tensor.Int64:
			value = float32(v.AsInt64()[0])
		default:
			return nil, fmt.Errorf("constantOfShape: unsupported value dtype %v", dtype)
		}
	}

	result, err := tensor.FullRaw(targetShape, value, dtype)
	if err != nil {
		return nil, fmt.Errorf("constantOfShape: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleShape(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("shape requires 1 input, got %d", len(inputs))
	}

	shape := inputs[0].Shape()
	data := make([]int64, len(shape))
	for i, v := range shape {
		data[i] = int64(v)
	}
	result, err := tensor.FromInt64(tensor.Shape{len(shape)}, data)
	if err != nil {
		return nil, fmt.Errorf("shape: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleSize(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("size requires 1 input, got %d", len(inputs))
	}

	result, err := tensor.FromInt64(tensor.Shape{1}, []int64{int64(inputs[0].NumElements())})
	if err != nil {
		return nil, fmt.Errorf("size: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}
