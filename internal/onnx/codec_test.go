package onnx

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func sampleModel() *ModelProto {
	return &ModelProto{
		IRVersion:       8,
		ProducerName:    "snacx",
		ProducerVersion: "0.1.0",
		OpsetImport:     []OperatorSetID{{Domain: "", Version: 18}},
		MetadataProps: []StringStringEntry{
			{Key: "model_type", Value: "snac"},
			{Key: "sampling_rate", Value: "24000"},
		},
		Graph: &GraphProto{
			Name: "snac_decoder",
			Nodes: []NodeProto{
				{
					Name:    "codes_embed",
					OpType:  "Gather",
					Inputs:  []string{"codebook", "codes_0"},
					Outputs: []string{"embed_0"},
					Attributes: []AttributeProto{
						{Name: "axis", Type: AttributeProtoInt, I: 0},
					},
				},
				{
					Name:    "scale",
					OpType:  "Mul",
					Inputs:  []string{"embed_0", "alpha"},
					Outputs: []string{"scaled"},
				},
			},
			Initializers: []TensorProto{
				{
					Name:     "codebook",
					DataType: TensorProtoFloat,
					Dims:     []int64{4, 2},
					RawData:  make([]byte, 4*2*4),
				},
				{
					Name:      "alpha",
					DataType:  TensorProtoFloat,
					Dims:      []int64{1},
					FloatData: []float32{0.5},
				},
			},
			Inputs: []ValueInfoProto{
				{
					Name: "codes_0",
					Type: &TypeProto{TensorType: &TensorTypeProto{
						ElemType: TensorProtoInt32,
						Shape: &TensorShapeProto{Dims: []DimensionProto{
							{DimParam: "batch"},
							{DimParam: "time_0"},
						}},
					}},
				},
			},
			Outputs: []ValueInfoProto{
				{
					Name: "scaled",
					Type: &TypeProto{TensorType: &TensorTypeProto{
						ElemType: TensorProtoFloat,
						Shape: &TensorShapeProto{Dims: []DimensionProto{
							{DimParam: "batch"},
							{DimValue: 2},
						}},
					}},
				},
			},
		},
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	model := sampleModel()

	data := Marshal(model)
	if len(data) == 0 {
		t.Fatal("Marshal returned empty data")
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.IRVersion != 8 {
		t.Errorf("IRVersion = %d, want 8", parsed.IRVersion)
	}
	if parsed.ProducerName != "snacx" {
		t.Errorf("ProducerName = %q, want snacx", parsed.ProducerName)
	}
	if len(parsed.OpsetImport) != 1 || parsed.OpsetImport[0].Version != 18 {
		t.Errorf("OpsetImport = %+v, want version 18", parsed.OpsetImport)
	}
	if len(parsed.MetadataProps) != 2 || parsed.MetadataProps[1].Value != "24000" {
		t.Errorf("MetadataProps = %+v", parsed.MetadataProps)
	}

	g := parsed.Graph
	if g == nil {
		t.Fatal("parsed model has no graph")
	}
	if g.Name != "snac_decoder" {
		t.Errorf("graph name = %q", g.Name)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("node count = %d, want 2", len(g.Nodes))
	}
	if g.Nodes[0].OpType != "Gather" {
		t.Errorf("node[0].OpType = %q", g.Nodes[0].OpType)
	}
	if len(g.Nodes[0].Attributes) != 1 {
		t.Fatalf("attribute count = %d, want 1", len(g.Nodes[0].Attributes))
	}
	attr := g.Nodes[0].Attributes[0]
	if attr.Name != "axis" || attr.Type != AttributeProtoInt || attr.I != 0 {
		t.Errorf("axis attribute = %+v", attr)
	}
	if len(g.Initializers) != 2 {
		t.Fatalf("initializer count = %d, want 2", len(g.Initializers))
	}
	if got := g.Initializers[0].Dims; len(got) != 2 || got[0] != 4 || got[1] != 2 {
		t.Errorf("codebook dims = %v, want [4 2]", got)
	}
	if got := g.Initializers[1].FloatData; len(got) != 1 || got[0] != 0.5 {
		t.Errorf("alpha float data = %v", got)
	}

	if len(g.Inputs) != 1 {
		t.Fatalf("input count = %d, want 1", len(g.Inputs))
	}
	dims := g.Inputs[0].Type.TensorType.Shape.Dims
	if len(dims) != 2 || dims[0].DimParam != "batch" || dims[1].DimParam != "time_0" {
		t.Errorf("input dims = %+v", dims)
	}
	outDims := g.Outputs[0].Type.TensorType.Shape.Dims
	if len(outDims) != 2 || outDims[0].DimParam != "batch" || outDims[1].DimValue != 2 {
		t.Errorf("output dims = %+v", outDims)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	a := Marshal(sampleModel())
	b := Marshal(sampleModel())
	if !bytes.Equal(a, b) {
		t.Error("Marshal is not deterministic")
	}
}

func TestMarshalAttributeKinds(t *testing.T) {
	model := &ModelProto{
		IRVersion: 8,
		Graph: &GraphProto{
			Name: "attrs",
			Nodes: []NodeProto{
				{
					OpType:  "Conv",
					Inputs:  []string{"x", "w"},
					Outputs: []string{"y"},
					Attributes: []AttributeProto{
						{Name: "alpha", Type: AttributeProtoFloat, F: 1.5},
						{Name: "group", Type: AttributeProtoInt, I: 64},
						{Name: "auto_pad", Type: AttributeProtoString, S: []byte("NOTSET")},
						{Name: "pads", Type: AttributeProtoInts, Ints: []int64{3, 3}},
						{Name: "scales", Type: AttributeProtoFloats, Floats: []float32{1, 2, 4}},
						{Name: "value", Type: AttributeProtoTensor, T: &TensorProto{
							DataType:  TensorProtoFloat,
							Dims:      []int64{1},
							FloatData: []float32{0.25},
						}},
					},
				},
			},
		},
	}

	parsed, err := Parse(Marshal(model))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	attrs := parsed.Graph.Nodes[0].Attributes
	if len(attrs) != 6 {
		t.Fatalf("attribute count = %d, want 6", len(attrs))
	}
	if attrs[0].F != 1.5 {
		t.Errorf("alpha = %v, want 1.5", attrs[0].F)
	}
	if attrs[1].I != 64 {
		t.Errorf("group = %v, want 64", attrs[1].I)
	}
	if string(attrs[2].S) != "NOTSET" {
		t.Errorf("auto_pad = %q", attrs[2].S)
	}
	if len(attrs[3].Ints) != 2 || attrs[3].Ints[0] != 3 {
		t.Errorf("pads = %v", attrs[3].Ints)
	}
	if len(attrs[4].Floats) != 3 || attrs[4].Floats[2] != 4 {
		t.Errorf("scales = %v", attrs[4].Floats)
	}
	if attrs[5].T == nil || len(attrs[5].T.FloatData) != 1 || attrs[5].T.FloatData[0] != 0.25 {
		t.Errorf("value tensor = %+v", attrs[5].T)
	}
}

func TestWriteFileAndParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")

	if err := WriteFile(path, sampleModel()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	parsed, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if parsed.Graph == nil || len(parsed.Graph.Nodes) != 2 {
		t.Error("file round trip lost graph content")
	}
}

func TestParseSkipsUnknownFields(t *testing.T) {
	data := Marshal(sampleModel())

	// Append a field this parser does not know: field 99, varint 7.
	data = binary.AppendUvarint(data, 99<<3|wireVarint)
	data = append(data, 7)

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed on unknown field: %v", err)
	}
	if parsed.IRVersion != 8 {
		t.Error("known fields lost when skipping unknown field")
	}
}

func TestParseTruncated(t *testing.T) {
	data := Marshal(sampleModel())
	if _, err := Parse(data[:len(data)/2]); err == nil {
		t.Error("expected error for truncated data")
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.onnx")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := os.Stat(filepath.Join(t.TempDir(), "missing.onnx")); err == nil {
		t.Error("ParseFile must not create the file")
	}
}
