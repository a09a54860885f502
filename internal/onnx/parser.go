package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: path is user input, file inclusion is the point
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
func Parse(data []byte) (*ModelProto, error) {
	p := &parser{data: data}
	model := &ModelProto{}
	if err := p.readModelProto(model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return model, nil
}

// parser implements a minimal protobuf wire format decoder. Unknown fields
// are skipped, so models written by other producers parse as long as the
// fields this package understands are well formed.
type parser struct {
	data []byte
	pos  int
}

// Protobuf wire types.
const (
	wireVarint = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	wire64Bit  = 1 // fixed64, sfixed64, double
	wireBytes  = 2 // string, bytes, embedded messages, packed repeated fields
	wire32Bit  = 5 // fixed32, sfixed32, float
)

// readSub parses an embedded message from a length-delimited field.
func (p *parser) readSub(read func(*parser) error) error {
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	return read(&parser{data: data})
}

// readModelProto reads a ModelProto message.
//
//nolint:gocognit,gocyclo,cyclop // field-by-field wire decoding
func (p *parser) readModelProto(m *ModelProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // ir_version
			m.IRVersion, err = p.readVarint()
		case 2: // producer_name
			m.ProducerName, err = p.readString()
		case 3: // producer_version
			m.ProducerVersion, err = p.readString()
		case 4: // domain
			m.Domain, err = p.readString()
		case 5: // model_version
			m.ModelVersion, err = p.readVarint()
		case 6: // doc_string
			m.DocString, err = p.readString()
		case 7: // graph
			m.Graph = &GraphProto{}
			err = p.readSub(func(sub *parser) error { return sub.readGraphProto(m.Graph) })
		case 8: // opset_import
			opset := OperatorSetID{}
			if err = p.readSub(func(sub *parser) error { return sub.readOperatorSetID(&opset) }); err == nil {
				m.OpsetImport = append(m.OpsetImport, opset)
			}
		case 14: // metadata_props
			entry := StringStringEntry{}
			if err = p.readSub(func(sub *parser) error { return sub.readStringStringEntry(&entry) }); err == nil {
				m.MetadataProps = append(m.MetadataProps, entry)
			}
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readGraphProto reads a GraphProto message.
//
//nolint:gocognit,gocyclo,cyclop // field-by-field wire decoding
func (p *parser) readGraphProto(m *GraphProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // node
			node := NodeProto{}
			if err = p.readSub(func(sub *parser) error { return sub.readNodeProto(&node) }); err == nil {
				m.Nodes = append(m.Nodes, node)
			}
		case 2: // name
			m.Name, err = p.readString()
		case 5: // initializer
			t := TensorProto{}
			if err = p.readSub(func(sub *parser) error { return sub.readTensorProto(&t) }); err == nil {
				m.Initializers = append(m.Initializers, t)
			}
		case 10: // doc_string
			m.DocString, err = p.readString()
		case 11: // input
			vi := ValueInfoProto{}
			if err = p.readSub(func(sub *parser) error { return sub.readValueInfoProto(&vi) }); err == nil {
				m.Inputs = append(m.Inputs, vi)
			}
		case 12: // output
			vi := ValueInfoProto{}
			if err = p.readSub(func(sub *parser) error { return sub.readValueInfoProto(&vi) }); err == nil {
				m.Outputs = append(m.Outputs, vi)
			}
		case 13: // value_info
			vi := ValueInfoProto{}
			if err = p.readSub(func(sub *parser) error { return sub.readValueInfoProto(&vi) }); err == nil {
				m.ValueInfo = append(m.ValueInfo, vi)
			}
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readNodeProto reads a NodeProto message.
//
//nolint:gocognit,gocyclo,cyclop // field-by-field wire decoding
func (p *parser) readNodeProto(m *NodeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // input
			var s string
			if s, err = p.readString(); err == nil {
				m.Inputs = append(m.Inputs, s)
			}
		case 2: // output
			var s string
			if s, err = p.readString(); err == nil {
				m.Outputs = append(m.Outputs, s)
			}
		case 3: // name
			m.Name, err = p.readString()
		case 4: // op_type
			m.OpType, err = p.readString()
		case 5: // attribute
			attr := AttributeProto{}
			if err = p.readSub(func(sub *parser) error { return sub.readAttributeProto(&attr) }); err == nil {
				m.Attributes = append(m.Attributes, attr)
			}
		case 6: // doc_string
			m.DocString, err = p.readString()
		case 7: // domain
			m.Domain, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTensorProto reads a TensorProto message.
//
//nolint:gocognit,gocyclo,cyclop // field-by-field wire decoding
func (p *parser) readTensorProto(m *TensorProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // dims (repeated int64)
			if wireType == wireBytes {
				err = p.readPackedVarints(func(v int64) { m.Dims = append(m.Dims, v) })
			} else {
				var v int64
				if v, err = p.readVarint(); err == nil {
					m.Dims = append(m.Dims, v)
				}
			}
		case 2: // data_type
			m.DataType, err = p.readInt32()
		case 4: // float_data (packed)
			var data []byte
			if data, err = p.readBytes(); err == nil {
				for i := 0; i+4 <= len(data); i += 4 {
					bits := binary.LittleEndian.Uint32(data[i:])
					m.FloatData = append(m.FloatData, math.Float32frombits(bits))
				}
			}
		case 5: // int32_data (packed)
			err = p.readPackedVarints(func(v int64) {
				m.Int32Data = append(m.Int32Data, int32(v)) //nolint:gosec // G115: varint fits in int32
			})
		case 7: // int64_data (packed)
			err = p.readPackedVarints(func(v int64) { m.Int64Data = append(m.Int64Data, v) })
		case 8: // name
			m.Name, err = p.readString()
		case 9: // raw_data
			m.RawData, err = p.readBytes()
		case 12: // doc_string
			m.DocString, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readValueInfoProto reads a ValueInfoProto message.
func (p *parser) readValueInfoProto(m *ValueInfoProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // name
			m.Name, err = p.readString()
		case 2: // type
			m.Type = &TypeProto{}
			err = p.readSub(func(sub *parser) error { return sub.readTypeProto(m.Type) })
		case 3: // doc_string
			m.DocString, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTypeProto reads a TypeProto message.
func (p *parser) readTypeProto(m *TypeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // tensor_type
			m.TensorType = &TensorTypeProto{}
			err = p.readSub(func(sub *parser) error { return sub.readTensorTypeProto(m.TensorType) })
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTensorTypeProto reads a TypeProto.Tensor message.
func (p *parser) readTensorTypeProto(m *TensorTypeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // elem_type
			m.ElemType, err = p.readInt32()
		case 2: // shape
			m.Shape = &TensorShapeProto{}
			err = p.readSub(func(sub *parser) error { return sub.readTensorShapeProto(m.Shape) })
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTensorShapeProto reads a TensorShapeProto message.
func (p *parser) readTensorShapeProto(m *TensorShapeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // dim
			dim := DimensionProto{}
			if err = p.readSub(func(sub *parser) error { return sub.readDimensionProto(&dim) }); err == nil {
				m.Dims = append(m.Dims, dim)
			}
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readDimensionProto reads a TensorShapeProto.Dimension message.
func (p *parser) readDimensionProto(m *DimensionProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // dim_value
			m.DimValue, err = p.readVarint()
		case 2: // dim_param
			m.DimParam, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readAttributeProto reads an AttributeProto message.
//
//nolint:gocognit,gocyclo,cyclop // field-by-field wire decoding
func (p *parser) readAttributeProto(m *AttributeProto) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // name
			m.Name, err = p.readString()
		case 2: // f (float)
			m.F, err = p.readFloat32()
		case 3: // i (int)
			m.I, err = p.readVarint()
		case 4: // s (bytes)
			m.S, err = p.readBytes()
		case 5: // t (tensor)
			m.T = &TensorProto{}
			err = p.readSub(func(sub *parser) error { return sub.readTensorProto(m.T) })
		case 7: // floats (packed)
			var data []byte
			if data, err = p.readBytes(); err == nil {
				for i := 0; i+4 <= len(data); i += 4 {
					bits := binary.LittleEndian.Uint32(data[i:])
					m.Floats = append(m.Floats, math.Float32frombits(bits))
				}
			}
		case 8: // ints (packed)
			err = p.readPackedVarints(func(v int64) { m.Ints = append(m.Ints, v) })
		case 9: // strings
			var data []byte
			if data, err = p.readBytes(); err == nil {
				m.Strings = append(m.Strings, data)
			}
		case 13: // doc_string
			m.DocString, err = p.readString()
		case 20: // type
			m.Type, err = p.readInt32()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readOperatorSetID reads an OperatorSetIdProto message.
func (p *parser) readOperatorSetID(m *OperatorSetID) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // domain
			m.Domain, err = p.readString()
		case 2: // version
			m.Version, err = p.readVarint()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readStringStringEntry reads a StringStringEntryProto message.
func (p *parser) readStringStringEntry(m *StringStringEntry) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // key
			m.Key, err = p.readString()
		case 2: // value
			m.Value, err = p.readString()
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTag reads a protobuf field tag.
func (p *parser) readTag() (fieldNum, wireType int, err error) {
	if p.pos >= len(p.data) {
		return 0, 0, io.EOF
	}
	tag, err := p.readVarint()
	if err != nil {
		return 0, 0, err
	}
	return int(tag >> 3), int(tag & 0x7), nil
}

// readVarint reads a varint-encoded int64.
func (p *parser) readVarint() (int64, error) {
	var result uint64
	var shift uint
	for {
		if p.pos >= len(p.data) {
			return 0, io.EOF
		}
		b := p.data[p.pos]
		p.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
	}
	return int64(result), nil //nolint:gosec // G115: varint fits in int64
}

// readPackedVarints decodes a packed repeated varint field.
func (p *parser) readPackedVarints(emit func(int64)) error {
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	sub := &parser{data: data}
	for sub.pos < len(sub.data) {
		v, err := sub.readVarint()
		if err != nil {
			return err
		}
		emit(v)
	}
	return nil
}

// readInt32 reads a varint-encoded int32.
func (p *parser) readInt32() (int32, error) {
	v, err := p.readVarint()
	if err != nil {
		return 0, err
	}
	return int32(v), nil //nolint:gosec // G115: varint fits in int32
}

// readBytes reads a length-delimited byte slice.
func (p *parser) readBytes() ([]byte, error) {
	length, err := p.readVarint()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.New("negative length")
	}
	end := p.pos + int(length)
	if end > len(p.data) {
		return nil, io.ErrUnexpectedEOF
	}
	result := p.data[p.pos:end]
	p.pos = end
	return result, nil
}

// readString reads a length-delimited string.
func (p *parser) readString() (string, error) {
	data, err := p.readBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readFloat32 reads a 32-bit float.
func (p *parser) readFloat32() (float32, error) {
	if p.pos+4 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return math.Float32frombits(bits), nil
}

// skipField skips a field based on wire type.
func (p *parser) skipField(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := p.readVarint()
		return err
	case wire64Bit:
		if p.pos+8 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 8
		return nil
	case wireBytes:
		_, err := p.readBytes()
		return err
	case wire32Bit:
		if p.pos+4 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 4
		return nil
	default:
		return fmt.Errorf("unknown wire type: %d", wireType)
	}
}
