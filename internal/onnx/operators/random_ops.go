package operators

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/tensor"
)

// registerRandomOps adds random sampling operators to the registry.
func (r *Registry) registerRandomOps() {
	r.Register("RandomNormalLike", handleRandomNormalLike)
}

// handleRandomNormalLike samples standard normal noise in the shape of its
// input. The decoder's noise branch relies on this, so mean and scale other
// than the (0, 1) defaults are rejected rather than silently ignored.
func handleRandomNormalLike(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("randomNormalLike requires 1 input, got %d", len(inputs))
	}

	if mean := GetAttrFloat(node, "mean", 0); mean != 0 {
		return nil, fmt.Errorf("randomNormalLike: non-zero mean %v is not supported", mean)
	}
	if scale := GetAttrFloat(node, "scale", 1); scale != 1 {
		return nil, fmt.Errorf("randomNormalLike: non-unit scale %v is not supported", scale)
	}

	dtype := inputs[0].DType()
	if to := GetAttrInt(node, "dtype", 0); to != 0 {
		var ok bool
		if dtype, ok = dtypeFromProto(to); !ok {
			return nil, fmt.Errorf("randomNormalLike: unsupported dtype %d", to)
		}
	}

	result, err := tensor.RandnRaw(inputs[0].Shape(), dtype)
	if err != nil {
		return nil, fmt.Errorf("randomNormalLike: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}
