package weights

import (
	"fmt"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/snac-ml/snacx/internal/tensor"
)

// LoadTorch reads a legacy PyTorch checkpoint (pytorch_model.bin) and
// returns its state dictionary as raw tensors. Half-precision storage is
// widened to float32.
func LoadTorch(path string) (map[string]*tensor.RawTensor, error) {
	obj, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to unpickle checkpoint: %w", err)
	}

	entries, err := dictEntries(obj)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*tensor.RawTensor, len(entries))
	for name, value := range entries {
		pt, ok := value.(*pytorch.Tensor)
		if !ok {
			// State dicts can carry non-tensor entries (version counters
			// and the like); skip them.
			continue
		}
		raw, err := tensorFromTorch(pt)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		out[name] = raw
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("checkpoint contains no tensors")
	}
	return out, nil
}

// dictEntries flattens the unpickled object into name/value pairs. Both
// plain dicts and collections.OrderedDict appear in the wild, sometimes
// nested under a "state_dict" key.
func dictEntries(obj interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	switch d := obj.(type) {
	case *types.Dict:
		for _, entry := range *d {
			key, ok := entry.Key.(string)
			if !ok {
				continue
			}
			out[key] = entry.Value
		}
	case *types.OrderedDict:
		for key, entry := range d.Map {
			name, ok := key.(string)
			if !ok {
				continue
			}
			out[name] = entry.Value
		}
	default:
		return nil, fmt.Errorf("unexpected checkpoint structure %T", obj)
	}

	if nested, ok := out["state_dict"]; ok {
		return dictEntries(nested)
	}
	return out, nil
}

// tensorFromTorch copies a gopickle tensor into a RawTensor. Only
// contiguous tensors are supported, which covers checkpoints written by
// torch.save.
func tensorFromTorch(pt *pytorch.Tensor) (*tensor.RawTensor, error) {
	shape := make(tensor.Shape, len(pt.Size))
	numel := 1
	for i, dim := range pt.Size {
		shape[i] = dim
		numel *= dim
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if !torchContiguous(pt) {
		return nil, fmt.Errorf("non-contiguous tensor is not supported")
	}

	off := pt.StorageOffset

	switch storage := pt.Source.(type) {
	case *pytorch.FloatStorage:
		return tensor.FromFloat32(shape, storage.Data[off:off+numel])
	case *pytorch.HalfStorage:
		// gopickle already widens half storage to float32.
		return tensor.FromFloat32(shape, storage.Data[off:off+numel])
	case *pytorch.BFloat16Storage:
		return tensor.FromFloat32(shape, storage.Data[off:off+numel])
	case *pytorch.DoubleStorage:
		values := make([]float32, numel)
		for i, v := range storage.Data[off : off+numel] {
			values[i] = float32(v)
		}
		return tensor.FromFloat32(shape, values)
	case *pytorch.IntStorage:
		return tensor.FromInt32(shape, storage.Data[off:off+numel])
	case *pytorch.LongStorage:
		return tensor.FromInt64(shape, storage.Data[off:off+numel])
	default:
		return nil, fmt.Errorf("unsupported storage type %T", pt.Source)
	}
}

// torchContiguous reports whether the tensor's strides describe row-major
// contiguous layout.
func torchContiguous(pt *pytorch.Tensor) bool {
	if len(pt.Size) != len(pt.Stride) {
		return false
	}
	expected := 1
	for i := len(pt.Size) - 1; i >= 0; i-- {
		if pt.Size[i] != 1 && pt.Stride[i] != expected {
			return false
		}
		expected *= pt.Size[i]
	}
	return true
}
