package onnx

import (
	"fmt"
	"sort"

	"github.com/snac-ml/snacx/internal/onnx/operators"
	"github.com/snac-ml/snacx/internal/tensor"
)

// LoadOptions configures model loading behavior.
type LoadOptions struct {
	// StrictMode fails on unsupported operators (default: false = fail at execution).
	StrictMode bool

	// CustomOps provides custom operator handlers.
	CustomOps map[string]operators.OpHandler
}

// DefaultLoadOptions returns default loading options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		StrictMode: false,
		CustomOps:  nil,
	}
}

// Load loads an ONNX model from file and prepares it for inference.
// The backend is used for tensor operations during inference.
//
// Example:
//
//	model, err := onnx.Load("snac.onnx", backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	outputs, err := model.ForwardNamed(inputs)
func Load(path string, backend tensor.Backend, opts ...LoadOptions) (*Model, error) {
	opt := DefaultLoadOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	proto, err := ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX file: %w", err)
	}

	return LoadFromProto(proto, backend, opt)
}

// LoadFromBytes loads an ONNX model from bytes.
func LoadFromBytes(data []byte, backend tensor.Backend, opts ...LoadOptions) (*Model, error) {
	opt := DefaultLoadOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	proto, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX data: %w", err)
	}

	return LoadFromProto(proto, backend, opt)
}

// LoadFromProto loads a model from parsed ModelProto.
func LoadFromProto(proto *ModelProto, backend tensor.Backend, opt LoadOptions) (*Model, error) {
	registry := operators.NewRegistry()

	for opType, handler := range opt.CustomOps {
		registry.Register(opType, handler)
	}

	if opt.StrictMode {
		if err := validateOperators(proto.Graph, registry); err != nil {
			return nil, err
		}
	}

	model := &Model{
		proto:    proto,
		registry: registry,
		backend:  backend,
	}

	if err := model.compile(); err != nil {
		return nil, fmt.Errorf("failed to compile model: %w", err)
	}

	return model, nil
}

// validateOperators checks that all operators are supported.
func validateOperators(graph *GraphProto, registry *operators.Registry) error {
	if graph == nil {
		return fmt.Errorf("model has no graph")
	}
	if registry == nil {
		return fmt.Errorf("registry is nil")
	}

	seen := make(map[string]bool)
	unsupported := make([]string, 0)
	for i := range graph.Nodes {
		opType := graph.Nodes[i].OpType
		if _, ok := registry.Get(opType); !ok && !seen[opType] {
			seen[opType] = true
			unsupported = append(unsupported, opType)
		}
	}

	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return fmt.Errorf("unsupported operators: %v", unsupported)
	}

	return nil
}

// ModelInfo contains basic information about an ONNX model without fully loading it.
type ModelInfo struct {
	IRVersion        int64
	OpsetVersion     int64
	ProducerName     string
	ProducerVersion  string
	InputNames       []string
	OutputNames      []string
	NodeCount        int
	InitializerCount int
	OpCounts         map[string]int
	Metadata         map[string]string
}

// GetModelInfo extracts basic info from an ONNX file.
func GetModelInfo(path string) (*ModelInfo, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return InfoFromProto(proto), nil
}

// InfoFromProto summarizes an already parsed model.
func InfoFromProto(proto *ModelProto) *ModelInfo {
	info := &ModelInfo{
		IRVersion:       proto.IRVersion,
		ProducerName:    proto.ProducerName,
		ProducerVersion: proto.ProducerVersion,
		OpCounts:        make(map[string]int),
		Metadata:        make(map[string]string),
	}

	for _, opset := range proto.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			info.OpsetVersion = opset.Version
			break
		}
	}

	for _, prop := range proto.MetadataProps {
		info.Metadata[prop.Key] = prop.Value
	}

	if proto.Graph != nil {
		// Inputs exclude initializers
		initNames := make(map[string]bool, len(proto.Graph.Initializers))
		for i := range proto.Graph.Initializers {
			initNames[proto.Graph.Initializers[i].Name] = true
		}
		for i := range proto.Graph.Inputs {
			if !initNames[proto.Graph.Inputs[i].Name] {
				info.InputNames = append(info.InputNames, proto.Graph.Inputs[i].Name)
			}
		}

		for _, output := range proto.Graph.Outputs {
			info.OutputNames = append(info.OutputNames, output.Name)
		}

		info.NodeCount = len(proto.Graph.Nodes)
		info.InitializerCount = len(proto.Graph.Initializers)
		for i := range proto.Graph.Nodes {
			info.OpCounts[proto.Graph.Nodes[i].OpType]++
		}
	}

	return info
}

// ListSupportedOps returns all supported ONNX operators.
func ListSupportedOps() []string {
	registry := operators.NewRegistry()
	ops := registry.SupportedOps()
	sort.Strings(ops)
	return ops
}
