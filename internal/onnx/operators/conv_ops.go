package operators

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/tensor"
)

// registerConvOps adds convolution operators to the registry.
func (r *Registry) registerConvOps() {
	r.Register("Conv", handleConv)
	r.Register("ConvTranspose", handleConvTranspose)
}

// convOptsFromNode reads the shared Conv/ConvTranspose hyperparameter
// attributes. Only the 1-D forms are supported: one spatial axis means one
// stride, one dilation, and a two-element pads list.
func convOptsFromNode(node *Node) (tensor.ConvOpts, error) {
	opts := tensor.ConvOpts{
		Stride:   1,
		Dilation: 1,
		Groups:   int(GetAttrInt(node, "group", 1)),
	}

	if strides := GetAttrInts(node, "strides"); len(strides) > 0 {
		if len(strides) != 1 {
			return opts, fmt.Errorf("expected 1 stride for 1-D convolution, got %d", len(strides))
		}
		opts.Stride = int(strides[0])
	}
	if dilations := GetAttrInts(node, "dilations"); len(dilations) > 0 {
		if len(dilations) != 1 {
			return opts, fmt.Errorf("expected 1 dilation for 1-D convolution, got %d", len(dilations))
		}
		opts.Dilation = int(dilations[0])
	}
	if pads := GetAttrInts(node, "pads"); len(pads) > 0 {
		if len(pads) != 2 {
			return opts, fmt.Errorf("expected 2 pads for 1-D convolution, got %d", len(pads))
		}
		opts.PadLeft = int(pads[0])
		opts.PadRight = int(pads[1])
	}
	if autoPad := GetAttrString(node, "auto_pad", "NOTSET"); autoPad != "NOTSET" {
		return opts, fmt.Errorf("auto_pad %q is not supported, use explicit pads", autoPad)
	}

	return opts, nil
}

func handleConv(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("conv requires at least 2 inputs (input, weight), got %d", len(inputs))
	}

	opts, err := convOptsFromNode(node)
	if err != nil {
		return nil, fmt.Errorf("conv: %w", err)
	}

	var bias *tensor.RawTensor
	if len(inputs) >= 3 {
		bias = inputs[2]
	}

	result, err := ctx.Backend.Conv1D(inputs[0], inputs[1], bias, opts)
	if err != nil {
		return nil, fmt.Errorf("conv: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleConvTranspose(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("convTranspose requires at least 2 inputs (input, weight), got %d", len(inputs))
	}

	opts, err := convOptsFromNode(node)
	if err != nil {
		return nil, fmt.Errorf("convTranspose: %w", err)
	}
	if outPad := GetAttrInts(node, "output_padding"); len(outPad) > 0 {
		if len(outPad) != 1 {
			return nil, fmt.Errorf("convTranspose: expected 1 output_padding, got %d", len(outPad))
		}
		opts.OutputPadding = int(outPad[0])
	}
	if len(GetAttrInts(node, "output_shape")) > 0 {
		return nil, fmt.Errorf("convTranspose: output_shape is not supported, use pads and output_padding")
	}

	var bias *tensor.RawTensor
	if len(inputs) >= 3 {
		bias = inputs[2]
	}

	result, err := ctx.Backend.ConvTranspose1D(inputs[0], inputs[1], bias, opts)
	if err != nil {
		return nil, fmt.Errorf("convTranspose: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}
