package operators

import (
	"testing"

	"github.com/snac-ml/snacx/internal/backend/cpu"
	"github.com/snac-ml/snacx/internal/tensor"
)

func TestRegistryExecuteUnsupported(t *testing.T) {
	r := NewRegistry()
	ctx := &Context{Backend: cpu.New()}

	node := &Node{OpType: "LSTM"}
	if _, err := r.Execute(ctx, node, nil); err == nil {
		t.Error("expected error for unsupported operator")
	}
}

func TestReshapeZeroCopiesInputDim(t *testing.T) {
	r := NewRegistry()
	ctx := &Context{Backend: cpu.New()}

	data, _ := tensor.FromFloat32(tensor.Shape{2, 3, 4}, make([]float32, 24))
	// [0, 0, -1] keeps the first two dims and infers the rest.
	shape, _ := tensor.FromInt64(tensor.Shape{3}, []int64{0, 0, -1})

	out, err := r.Execute(ctx, &Node{OpType: "Reshape"}, []*tensor.RawTensor{data, shape})
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if !out[0].Shape().Equal(tensor.Shape{2, 3, 4}) {
		t.Errorf("shape = %v, want [2 3 4]", out[0].Shape())
	}

	// [0, -1] merges the trailing dims.
	shape2, _ := tensor.FromInt64(tensor.Shape{2}, []int64{0, -1})
	out, err = r.Execute(ctx, &Node{OpType: "Reshape"}, []*tensor.RawTensor{data, shape2})
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if !out[0].Shape().Equal(tensor.Shape{2, 12}) {
		t.Errorf("shape = %v, want [2 12]", out[0].Shape())
	}
}

func TestConstantTensorAttribute(t *testing.T) {
	r := NewRegistry()
	ctx := &Context{Backend: cpu.New()}

	value, _ := tensor.FromFloat32(tensor.Shape{2}, []float32{1.5, 2.5})
	node := &Node{
		OpType: "Constant",
		Attributes: []Attribute{
			{Name: "value", Type: 4, Tensor: value},
		},
	}

	out, err := r.Execute(ctx, node, nil)
	if err != nil {
		t.Fatalf("Constant failed: %v", err)
	}
	got := out[0].AsFloat32()
	if got[0] != 1.5 || got[1] != 2.5 {
		t.Errorf("constant = %v", got)
	}
}

func TestConstantOfShapeInt64Fill(t *testing.T) {
	r := NewRegistry()
	ctx := &Context{Backend: cpu.New()}

	shape, _ := tensor.FromInt64(tensor.Shape{2}, []int64{2, 3})
	fill, _ := tensor.FromInt64(tensor.Shape{1}, []int64{7})
	node := &Node{
		OpType:     "ConstantOfShape",
		Attributes: []Attribute{{Name: "value", Tensor: fill}},
	}

	out, err := r.Execute(ctx, node, []*tensor.RawTensor{shape})
	if err != nil {
		t.Fatalf("ConstantOfShape failed: %v", err)
	}
	if !out[0].Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("shape = %v, want [2 3]", out[0].Shape())
	}
	if out[0].DType() != tensor.Int64 {
		t.Fatalf("dtype = %v, want int64", out[0].DType())
	}
	for i, v := range out[0].AsInt64() {
		if v != 7 {
			t.Errorf("value[%d] = %d, want 7", i, v)
		}
	}
}

func TestRandomNormalLikeShape(t *testing.T) {
	r := NewRegistry()
	ctx := &Context{Backend: cpu.New()}

	like, _ := tensor.FromFloat32(tensor.Shape{2, 1, 5}, make([]float32, 10))
	out, err := r.Execute(ctx, &Node{OpType: "RandomNormalLike"}, []*tensor.RawTensor{like})
	if err != nil {
		t.Fatalf("RandomNormalLike failed: %v", err)
	}
	if !out[0].Shape().Equal(tensor.Shape{2, 1, 5}) {
		t.Errorf("shape = %v, want [2 1 5]", out[0].Shape())
	}
}

func TestRandomNormalLikeRejectsNonDefaultDistribution(t *testing.T) {
	r := NewRegistry()
	ctx := &Context{Backend: cpu.New()}

	like, _ := tensor.FromFloat32(tensor.Shape{2}, []float32{0, 0})
	node := &Node{
		OpType:     "RandomNormalLike",
		Attributes: []Attribute{{Name: "scale", Type: 1, F: 2}},
	}
	if _, err := r.Execute(ctx, node, []*tensor.RawTensor{like}); err == nil {
		t.Error("expected error for non-unit scale")
	}
}

func TestConvOptsFromNode(t *testing.T) {
	node := &Node{
		OpType: "Conv",
		Attributes: []Attribute{
			{Name: "strides", Ints: []int64{2}},
			{Name: "pads", Ints: []int64{3, 3}},
			{Name: "dilations", Ints: []int64{9}},
			{Name: "group", I: 64},
		},
	}

	opts, err := convOptsFromNode(node)
	if err != nil {
		t.Fatalf("convOptsFromNode failed: %v", err)
	}
	if opts.Stride != 2 || opts.PadLeft != 3 || opts.PadRight != 3 || opts.Dilation != 9 || opts.Groups != 64 {
		t.Errorf("opts = %+v", opts)
	}
}

func TestConvOptsRejects2D(t *testing.T) {
	node := &Node{
		OpType: "Conv",
		Attributes: []Attribute{
			{Name: "strides", Ints: []int64{2, 2}},
		},
	}
	if _, err := convOptsFromNode(node); err == nil {
		t.Error("expected error for 2-D strides")
	}
}
