package onnx

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Marshal serializes a model to the protobuf wire format. Fields are
// written in ascending field-number order and zero values are omitted, so
// the same model always produces the same bytes.
func Marshal(model *ModelProto) []byte {
	e := &encoder{}
	e.writeModelProto(model)
	return e.buf
}

// WriteFile serializes a model and writes it to path.
func WriteFile(path string, model *ModelProto) error {
	data := Marshal(model)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: model files are not secrets
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

// encoder builds protobuf wire format into a single growing buffer.
// Embedded messages are encoded into a temporary encoder first so their
// length prefix can be written.
type encoder struct {
	buf []byte
}

func (e *encoder) writeModelProto(m *ModelProto) {
	if m.IRVersion != 0 {
		e.writeVarintField(1, m.IRVersion)
	}
	e.writeStringField(2, m.ProducerName)
	e.writeStringField(3, m.ProducerVersion)
	e.writeStringField(4, m.Domain)
	if m.ModelVersion != 0 {
		e.writeVarintField(5, m.ModelVersion)
	}
	e.writeStringField(6, m.DocString)
	if m.Graph != nil {
		e.writeMessageField(7, func(sub *encoder) { sub.writeGraphProto(m.Graph) })
	}
	for i := range m.OpsetImport {
		opset := &m.OpsetImport[i]
		e.writeMessageField(8, func(sub *encoder) { sub.writeOperatorSetID(opset) })
	}
	for i := range m.MetadataProps {
		entry := &m.MetadataProps[i]
		e.writeMessageField(14, func(sub *encoder) { sub.writeStringStringEntry(entry) })
	}
}

func (e *encoder) writeGraphProto(m *GraphProto) {
	for i := range m.Nodes {
		node := &m.Nodes[i]
		e.writeMessageField(1, func(sub *encoder) { sub.writeNodeProto(node) })
	}
	e.writeStringField(2, m.Name)
	for i := range m.Initializers {
		t := &m.Initializers[i]
		e.writeMessageField(5, func(sub *encoder) { sub.writeTensorProto(t) })
	}
	e.writeStringField(10, m.DocString)
	for i := range m.Inputs {
		vi := &m.Inputs[i]
		e.writeMessageField(11, func(sub *encoder) { sub.writeValueInfoProto(vi) })
	}
	for i := range m.Outputs {
		vi := &m.Outputs[i]
		e.writeMessageField(12, func(sub *encoder) { sub.writeValueInfoProto(vi) })
	}
	for i := range m.ValueInfo {
		vi := &m.ValueInfo[i]
		e.writeMessageField(13, func(sub *encoder) { sub.writeValueInfoProto(vi) })
	}
}

func (e *encoder) writeNodeProto(m *NodeProto) {
	for _, s := range m.Inputs {
		e.writeTag(1, wireBytes)
		e.writeLengthDelimited([]byte(s))
	}
	for _, s := range m.Outputs {
		e.writeTag(2, wireBytes)
		e.writeLengthDelimited([]byte(s))
	}
	e.writeStringField(3, m.Name)
	e.writeStringField(4, m.OpType)
	for i := range m.Attributes {
		attr := &m.Attributes[i]
		e.writeMessageField(5, func(sub *encoder) { sub.writeAttributeProto(attr) })
	}
	e.writeStringField(6, m.DocString)
	e.writeStringField(7, m.Domain)
}

func (e *encoder) writeTensorProto(m *TensorProto) {
	if len(m.Dims) > 0 {
		e.writePackedVarints(1, m.Dims)
	}
	if m.DataType != 0 {
		e.writeVarintField(2, int64(m.DataType))
	}
	if len(m.FloatData) > 0 {
		e.writePackedFloats(4, m.FloatData)
	}
	if len(m.Int32Data) > 0 {
		ints := make([]int64, len(m.Int32Data))
		for i, v := range m.Int32Data {
			ints[i] = int64(v)
		}
		e.writePackedVarints(5, ints)
	}
	if len(m.Int64Data) > 0 {
		e.writePackedVarints(7, m.Int64Data)
	}
	e.writeStringField(8, m.Name)
	if len(m.RawData) > 0 {
		e.writeTag(9, wireBytes)
		e.writeLengthDelimited(m.RawData)
	}
	e.writeStringField(12, m.DocString)
}

func (e *encoder) writeValueInfoProto(m *ValueInfoProto) {
	e.writeStringField(1, m.Name)
	if m.Type != nil {
		e.writeMessageField(2, func(sub *encoder) { sub.writeTypeProto(m.Type) })
	}
	e.writeStringField(3, m.DocString)
}

func (e *encoder) writeTypeProto(m *TypeProto) {
	if m.TensorType != nil {
		e.writeMessageField(1, func(sub *encoder) { sub.writeTensorTypeProto(m.TensorType) })
	}
}

func (e *encoder) writeTensorTypeProto(m *TensorTypeProto) {
	if m.ElemType != 0 {
		e.writeVarintField(1, int64(m.ElemType))
	}
	if m.Shape != nil {
		e.writeMessageField(2, func(sub *encoder) { sub.writeTensorShapeProto(m.Shape) })
	}
}

func (e *encoder) writeTensorShapeProto(m *TensorShapeProto) {
	for i := range m.Dims {
		dim := &m.Dims[i]
		e.writeMessageField(1, func(sub *encoder) { sub.writeDimensionProto(dim) })
	}
}

func (e *encoder) writeDimensionProto(m *DimensionProto) {
	// dim_value and dim_param form a oneof; a named dimension wins.
	if m.DimParam != "" {
		e.writeStringField(2, m.DimParam)
		return
	}
	e.writeVarintField(1, m.DimValue)
}

func (e *encoder) writeAttributeProto(m *AttributeProto) {
	e.writeStringField(1, m.Name)
	switch m.Type {
	case AttributeProtoFloat:
		e.writeTag(2, wire32Bit)
		e.writeFixed32(math.Float32bits(m.F))
	case AttributeProtoInt:
		e.writeVarintField(3, m.I)
	case AttributeProtoString:
		e.writeTag(4, wireBytes)
		e.writeLengthDelimited(m.S)
	case AttributeProtoTensor:
		if m.T != nil {
			e.writeMessageField(5, func(sub *encoder) { sub.writeTensorProto(m.T) })
		}
	case AttributeProtoFloats:
		e.writePackedFloats(7, m.Floats)
	case AttributeProtoInts:
		e.writePackedVarints(8, m.Ints)
	case AttributeProtoStrings:
		for _, s := range m.Strings {
			e.writeTag(9, wireBytes)
			e.writeLengthDelimited(s)
		}
	}
	e.writeStringField(13, m.DocString)
	if m.Type != 0 {
		e.writeVarintField(20, int64(m.Type))
	}
}

func (e *encoder) writeOperatorSetID(m *OperatorSetID) {
	e.writeStringField(1, m.Domain)
	if m.Version != 0 {
		e.writeVarintField(2, m.Version)
	}
}

func (e *encoder) writeStringStringEntry(m *StringStringEntry) {
	e.writeStringField(1, m.Key)
	e.writeStringField(2, m.Value)
}

// Wire-level primitives.

func (e *encoder) writeTag(fieldNum, wireType int) {
	e.writeVarint(int64(fieldNum)<<3 | int64(wireType))
}

func (e *encoder) writeVarint(v int64) {
	e.buf = binary.AppendUvarint(e.buf, uint64(v)) //nolint:gosec // G115: two's complement round-trip
}

func (e *encoder) writeFixed32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) writeLengthDelimited(data []byte) {
	e.writeVarint(int64(len(data)))
	e.buf = append(e.buf, data...)
}

func (e *encoder) writeVarintField(fieldNum int, v int64) {
	e.writeTag(fieldNum, wireVarint)
	e.writeVarint(v)
}

func (e *encoder) writeStringField(fieldNum int, s string) {
	if s == "" {
		return
	}
	e.writeTag(fieldNum, wireBytes)
	e.writeLengthDelimited([]byte(s))
}

func (e *encoder) writeMessageField(fieldNum int, write func(*encoder)) {
	sub := &encoder{}
	write(sub)
	e.writeTag(fieldNum, wireBytes)
	e.writeLengthDelimited(sub.buf)
}

func (e *encoder) writePackedVarints(fieldNum int, values []int64) {
	if len(values) == 0 {
		return
	}
	sub := &encoder{}
	for _, v := range values {
		sub.writeVarint(v)
	}
	e.writeTag(fieldNum, wireBytes)
	e.writeLengthDelimited(sub.buf)
}

func (e *encoder) writePackedFloats(fieldNum int, values []float32) {
	if len(values) == 0 {
		return
	}
	data := make([]byte, 0, len(values)*4)
	for _, v := range values {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	e.writeTag(fieldNum, wireBytes)
	e.writeLengthDelimited(data)
}
