package weights

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/snac-ml/snacx/internal/tensor"
)

// Format identifies a checkpoint serialization format.
type Format int

// Supported checkpoint formats.
const (
	FormatUnknown Format = iota
	FormatSafeTensors
	FormatTorch
)

func (f Format) String() string {
	switch f {
	case FormatSafeTensors:
		return "safetensors"
	case FormatTorch:
		return "pytorch"
	default:
		return "unknown"
	}
}

// DetectFormat determines the checkpoint format from the file extension,
// falling back to content sniffing for unrecognized extensions.
func DetectFormat(path string) (Format, error) {
	switch filepath.Ext(path) {
	case ".safetensors":
		return FormatSafeTensors, nil
	case ".bin", ".pt", ".pth":
		return FormatTorch, nil
	}

	//nolint:gosec // G304: path is user input, file inspection is the point
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	// A safetensors file starts with a little-endian header size followed
	// by a JSON object. A pickle stream starts with the protocol opcode
	// 0x80 (or a ZIP archive for newer torch.save).
	head := make([]byte, 9)
	if _, err := file.Read(head); err != nil {
		return FormatUnknown, fmt.Errorf("failed to read checkpoint header: %w", err)
	}
	if head[0] == 0x80 || (head[0] == 'P' && head[1] == 'K') {
		return FormatTorch, nil
	}
	headerSize := binary.LittleEndian.Uint64(head[:8])
	if headerSize > 0 && headerSize < 100*1024*1024 && head[8] == '{' {
		return FormatSafeTensors, nil
	}

	return FormatUnknown, fmt.Errorf("unrecognized checkpoint format: %s", path)
}

// LoadStateDict reads a checkpoint in either supported format and returns
// its raw state dictionary.
func LoadStateDict(path string) (map[string]*tensor.RawTensor, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatSafeTensors:
		reader, err := NewSafeTensorsReader(path)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = reader.Close()
		}()
		return reader.LoadAll()
	case FormatTorch:
		return LoadTorch(path)
	default:
		return nil, fmt.Errorf("unsupported checkpoint format")
	}
}

// LoadFolded loads a checkpoint and folds weight normalization in one
// step. This is the form the graph builder consumes.
func LoadFolded(path string) (map[string]*tensor.RawTensor, error) {
	stateDict, err := LoadStateDict(path)
	if err != nil {
		return nil, err
	}
	return FoldWeightNorm(stateDict)
}
