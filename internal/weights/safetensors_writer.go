package weights

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/snac-ml/snacx/internal/tensor"
)

// WriteSafeTensors writes a state dictionary to a SafeTensors file.
//
// Tensors are written in alphabetical order by name, which is also how
// their data offsets are assigned.
func WriteSafeTensors(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]interface{}, len(stateDict)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var currentOffset int64
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.ByteSize())

		header[name] = SafeTensorInfo{
			DType:       dtypeToSafeTensors(raw.DType()),
			Shape:       []int(raw.Shape()),
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	//nolint:gosec // G304: path is user input, file creation is the point
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, name := range names {
		if _, err := file.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}

// dtypeToSafeTensors converts tensor.DataType to SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) SafeTensorsDType {
	switch dt {
	case tensor.Float32:
		return SafeTensorsF32
	case tensor.Float64:
		return SafeTensorsF64
	case tensor.Int32:
		return SafeTensorsI32
	case tensor.Int64:
		return SafeTensorsI64
	case tensor.Uint8:
		return SafeTensorsU8
	case tensor.Bool:
		return SafeTensorsBool
	default:
		return SafeTensorsF32
	}
}
