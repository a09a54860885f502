package operators

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/tensor"
)

// registerActivations adds activation operators to the registry.
func (r *Registry) registerActivations() {
	r.Register("Relu", handleRelu)
	r.Register("LeakyRelu", handleLeakyRelu)
	r.Register("Sigmoid", handleSigmoid)
	r.Register("Tanh", handleTanh)
}

func handleRelu(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("relu requires 1 input, got %d", len(inputs))
	}
	result, err := tensor.ReLU(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("relu: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleLeakyRelu(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("leakyRelu requires 1 input, got %d", len(inputs))
	}
	alpha := GetAttrFloat(node, "alpha", 0.01)
	result, err := tensor.LeakyReLU(inputs[0], alpha)
	if err != nil {
		return nil, fmt.Errorf("leakyRelu: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleSigmoid(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("sigmoid requires 1 input, got %d", len(inputs))
	}
	result, err := tensor.Sigmoid(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("sigmoid: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleTanh(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("tanh requires 1 input, got %d", len(inputs))
	}
	result, err := tensor.Tanh(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("tanh: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}
