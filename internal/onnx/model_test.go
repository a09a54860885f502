package onnx

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/snac-ml/snacx/internal/backend/cpu"
	"github.com/snac-ml/snacx/internal/onnx/operators"
	"github.com/snac-ml/snacx/internal/tensor"
)

func float32Bytes(values ...float32) []byte {
	data := make([]byte, 0, len(values)*4)
	for _, v := range values {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	return data
}

// snakeModel builds the periodic activation subgraph the decoder uses:
// y = x + recip * sin(alpha*x)^2, with alpha and recip as initializers.
func snakeModel() *ModelProto {
	return &ModelProto{
		IRVersion:   8,
		OpsetImport: []OperatorSetID{{Version: 18}},
		Graph: &GraphProto{
			Name: "snake",
			Nodes: []NodeProto{
				{Name: "ax", OpType: "Mul", Inputs: []string{"x", "alpha"}, Outputs: []string{"ax"}},
				{Name: "sin", OpType: "Sin", Inputs: []string{"ax"}, Outputs: []string{"sin_ax"}},
				{Name: "sin2", OpType: "Mul", Inputs: []string{"sin_ax", "sin_ax"}, Outputs: []string{"sin2"}},
				{Name: "scaled", OpType: "Mul", Inputs: []string{"sin2", "recip"}, Outputs: []string{"scaled"}},
				{Name: "out", OpType: "Add", Inputs: []string{"x", "scaled"}, Outputs: []string{"y"}},
			},
			Initializers: []TensorProto{
				{Name: "alpha", DataType: TensorProtoFloat, Dims: []int64{1, 2, 1}, RawData: float32Bytes(1, 2)},
				{Name: "recip", DataType: TensorProtoFloat, Dims: []int64{1, 2, 1}, RawData: float32Bytes(1, 0.5)},
			},
			Inputs: []ValueInfoProto{
				{Name: "x", Type: &TypeProto{TensorType: &TensorTypeProto{ElemType: TensorProtoFloat}}},
			},
			Outputs: []ValueInfoProto{
				{Name: "y", Type: &TypeProto{TensorType: &TensorTypeProto{ElemType: TensorProtoFloat}}},
			},
		},
	}
}

func TestModelForwardSnake(t *testing.T) {
	model, err := LoadFromProto(snakeModel(), cpu.New(), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("LoadFromProto failed: %v", err)
	}

	if got := model.InputNames(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("InputNames = %v, want [x]", got)
	}
	if got := model.OpsetVersion(); got != 18 {
		t.Errorf("OpsetVersion = %d, want 18", got)
	}

	x, _ := tensor.FromFloat32(tensor.Shape{1, 2, 2}, []float32{0.5, 1.0, -0.5, 0.25})
	out, err := model.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if !out.Shape().Equal(tensor.Shape{1, 2, 2}) {
		t.Fatalf("shape = %v, want [1 2 2]", out.Shape())
	}

	got := out.AsFloat32()
	alpha := []float32{1, 1, 2, 2}
	recip := []float32{1, 1, 0.5, 0.5}
	in := []float32{0.5, 1.0, -0.5, 0.25}
	for i := range got {
		s := float32(math.Sin(float64(alpha[i] * in[i])))
		want := in[i] + recip[i]*s*s
		if math.Abs(float64(got[i]-want)) > 1e-5 {
			t.Errorf("value[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestModelForwardConv(t *testing.T) {
	proto := &ModelProto{
		IRVersion:   8,
		OpsetImport: []OperatorSetID{{Version: 18}},
		Graph: &GraphProto{
			Name: "conv",
			Nodes: []NodeProto{
				{
					Name:    "conv",
					OpType:  "Conv",
					Inputs:  []string{"x", "w"},
					Outputs: []string{"y"},
					Attributes: []AttributeProto{
						{Name: "strides", Type: AttributeProtoInts, Ints: []int64{1}},
						{Name: "pads", Type: AttributeProtoInts, Ints: []int64{1, 1}},
					},
				},
			},
			Initializers: []TensorProto{
				{Name: "w", DataType: TensorProtoFloat, Dims: []int64{1, 1, 3}, RawData: float32Bytes(1, 1, 1)},
			},
			Inputs: []ValueInfoProto{
				{Name: "x", Type: &TypeProto{TensorType: &TensorTypeProto{ElemType: TensorProtoFloat}}},
			},
			Outputs: []ValueInfoProto{
				{Name: "y", Type: &TypeProto{TensorType: &TensorTypeProto{ElemType: TensorProtoFloat}}},
			},
		},
	}

	model, err := LoadFromProto(proto, cpu.New(), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("LoadFromProto failed: %v", err)
	}

	x, _ := tensor.FromFloat32(tensor.Shape{1, 1, 3}, []float32{1, 2, 3})
	out, err := model.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	want := []float32{3, 6, 5}
	got := out.AsFloat32()
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("value[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestModelForwardNamedMissingInput(t *testing.T) {
	model, err := LoadFromProto(snakeModel(), cpu.New(), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("LoadFromProto failed: %v", err)
	}

	if _, err := model.ForwardNamed(map[string]*tensor.RawTensor{}); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestLoadStrictModeRejectsUnknownOp(t *testing.T) {
	proto := snakeModel()
	proto.Graph.Nodes[0].OpType = "LSTM"

	_, err := LoadFromProto(proto, cpu.New(), LoadOptions{StrictMode: true})
	if err == nil {
		t.Fatal("expected error for unsupported operator in strict mode")
	}
}

func TestLoadCustomOp(t *testing.T) {
	proto := snakeModel()
	proto.Graph.Nodes[1].OpType = "MySin"

	// Custom handler delegating to the stock Sin implementation.
	model, err := LoadFromProto(proto, cpu.New(), LoadOptions{
		CustomOps: map[string]operators.OpHandler{
			"MySin": func(_ *operators.Context, _ *operators.Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
				out, err := tensor.Sin(inputs[0])
				if err != nil {
					return nil, err
				}
				return []*tensor.RawTensor{out}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("LoadFromProto failed: %v", err)
	}

	x, _ := tensor.FromFloat32(tensor.Shape{1, 2, 1}, []float32{0.5, 1.0})
	if _, err := model.Forward(x); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
}

func TestInfoFromProto(t *testing.T) {
	info := InfoFromProto(snakeModel())

	if info.IRVersion != 8 {
		t.Errorf("IRVersion = %d, want 8", info.IRVersion)
	}
	if info.OpsetVersion != 18 {
		t.Errorf("OpsetVersion = %d, want 18", info.OpsetVersion)
	}
	if info.NodeCount != 5 {
		t.Errorf("NodeCount = %d, want 5", info.NodeCount)
	}
	if info.InitializerCount != 2 {
		t.Errorf("InitializerCount = %d, want 2", info.InitializerCount)
	}
	if info.OpCounts["Mul"] != 3 {
		t.Errorf("OpCounts[Mul] = %d, want 3", info.OpCounts["Mul"])
	}
	if len(info.InputNames) != 1 || info.InputNames[0] != "x" {
		t.Errorf("InputNames = %v", info.InputNames)
	}
}

func TestListSupportedOps(t *testing.T) {
	ops := ListSupportedOps()
	want := map[string]bool{
		"Conv": true, "ConvTranspose": true, "Gather": true,
		"RandomNormalLike": true, "Sin": true, "Tanh": true,
	}
	found := make(map[string]bool)
	for _, op := range ops {
		found[op] = true
	}
	for op := range want {
		if !found[op] {
			t.Errorf("missing operator %s", op)
		}
	}
}
