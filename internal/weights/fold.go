package weights

import (
	"fmt"
	"math"
	"strings"

	"github.com/snac-ml/snacx/internal/parallel"
	"github.com/snac-ml/snacx/internal/tensor"
)

// FoldWeightNorm resolves torch weight normalization into plain weights.
// Every "<name>.weight_g" / "<name>.weight_v" pair becomes "<name>.weight"
// with weight[i] = g[i] * v[i] / ||v[i]||, where i indexes the leading
// dimension. A leading "module." prefix from DataParallel checkpoints is
// stripped from all names. Entries that are not part of a pair pass
// through unchanged.
func FoldWeightNorm(stateDict map[string]*tensor.RawTensor) (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(stateDict))

	for name, t := range stateDict {
		name = strings.TrimPrefix(name, "module.")

		switch {
		case strings.HasSuffix(name, ".weight_g"):
			// Handled together with its _v partner.
		case strings.HasSuffix(name, ".weight_v"):
			base := strings.TrimSuffix(name, ".weight_v")
			g, ok := lookupEither(stateDict, base+".weight_g")
			if !ok {
				return nil, fmt.Errorf("%s has no matching weight_g", name)
			}
			folded, err := foldPair(g, t)
			if err != nil {
				return nil, fmt.Errorf("folding %s: %w", base, err)
			}
			out[base+".weight"] = folded
		default:
			out[name] = t
		}
	}

	return out, nil
}

// lookupEither finds a tensor under its plain name or with the
// DataParallel "module." prefix.
func lookupEither(stateDict map[string]*tensor.RawTensor, name string) (*tensor.RawTensor, bool) {
	if t, ok := stateDict[name]; ok {
		return t, true
	}
	t, ok := stateDict["module."+name]
	return t, ok
}

// foldPair computes g * v / ||v|| per leading-dimension slice.
func foldPair(g, v *tensor.RawTensor) (*tensor.RawTensor, error) {
	if g.DType() != tensor.Float32 || v.DType() != tensor.Float32 {
		return nil, fmt.Errorf("expected float32 tensors, got %v and %v", g.DType(), v.DType())
	}
	vShape := v.Shape()
	if len(vShape) == 0 {
		return nil, fmt.Errorf("weight_v has no dimensions")
	}
	rows := vShape[0]
	if g.NumElements() != rows {
		return nil, fmt.Errorf("weight_g has %d elements for %d output slices", g.NumElements(), rows)
	}

	out, err := tensor.NewRaw(vShape.Clone(), tensor.Float32)
	if err != nil {
		return nil, err
	}

	gData := g.AsFloat32()
	vData := v.AsFloat32()
	outData := out.AsFloat32()
	rowLen := v.NumElements() / rows

	parallel.For(rows, func(i int) {
		row := vData[i*rowLen : (i+1)*rowLen]
		var sumSq float64
		for _, x := range row {
			sumSq += float64(x) * float64(x)
		}
		norm := math.Sqrt(sumSq)
		scale := float32(0)
		if norm > 0 {
			scale = gData[i] / float32(norm)
		}
		dst := outData[i*rowLen : (i+1)*rowLen]
		for j, x := range row {
			dst[j] = x * scale
		}
	}, parallel.DefaultConfig())

	return out, nil
}
