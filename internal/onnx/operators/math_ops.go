package operators

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/tensor"
)

// registerMathOps adds math operators to the registry.
func (r *Registry) registerMathOps() {
	r.Register("Add", handleAdd)
	r.Register("Sub", handleSub)
	r.Register("Mul", handleMul)
	r.Register("Div", handleDiv)
	r.Register("Sum", handleSum)
	r.Register("Sin", handleSin)
	r.Register("Cos", handleCos)
}

func handleAdd(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("add requires 2 inputs, got %d", len(inputs))
	}
	result := ctx.Backend.Add(inputs[0], inputs[1])
	return []*tensor.RawTensor{result}, nil
}

func handleSub(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("sub requires 2 inputs, got %d", len(inputs))
	}
	result := ctx.Backend.Sub(inputs[0], inputs[1])
	return []*tensor.RawTensor{result}, nil
}

func handleMul(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("mul requires 2 inputs, got %d", len(inputs))
	}
	result := ctx.Backend.Mul(inputs[0], inputs[1])
	return []*tensor.RawTensor{result}, nil
}

func handleDiv(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("div requires 2 inputs, got %d", len(inputs))
	}
	result := ctx.Backend.Div(inputs[0], inputs[1])
	return []*tensor.RawTensor{result}, nil
}

func handleSum(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("sum requires at least 1 input")
	}
	result := inputs[0]
	for i := 1; i < len(inputs); i++ {
		result = ctx.Backend.Add(result, inputs[i])
	}
	return []*tensor.RawTensor{result}, nil
}

func handleSin(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("sin requires 1 input, got %d", len(inputs))
	}
	result, err := tensor.Sin(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("sin: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}

func handleCos(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("cos requires 1 input, got %d", len(inputs))
	}
	result, err := tensor.Cos(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("cos: %w", err)
	}
	return []*tensor.RawTensor{result}, nil
}
