package cpu

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/parallel"
	"github.com/snac-ml/snacx/internal/tensor"
)

// Conv1D computes a grouped, dilated 1-D convolution.
//
// Input shape:  [N, C, L]
// Weight shape: [COut, C/groups, K]
// Bias shape:   [COut] (optional, may be nil)
// Output shape: [N, COut, LOut] with
// LOut = (L + padLeft + padRight - dilation*(K-1) - 1) / stride + 1.
//
// The loop nest is direct rather than im2col: the decoder's convolutions are
// either depthwise (C/groups == 1) or pointwise (K == 1), where the im2col
// buffer would cost more than it saves. One goroutine per (batch, output
// channel) row.
func (cpu *CPUBackend) Conv1D(input, weight, bias *tensor.RawTensor, opts tensor.ConvOpts) (*tensor.RawTensor, error) {
	inShape := input.Shape()
	wShape := weight.Shape()
	if len(inShape) != 3 {
		return nil, fmt.Errorf("conv1d: input must be 3D [N,C,L], got %dD", len(inShape))
	}
	if len(wShape) != 3 {
		return nil, fmt.Errorf("conv1d: weight must be 3D [COut,C/groups,K], got %dD", len(wShape))
	}
	if input.DType() != tensor.Float32 || weight.DType() != tensor.Float32 {
		return nil, fmt.Errorf("conv1d: float32 tensors required, got %s/%s", input.DType(), weight.DType())
	}

	n, c, l := inShape[0], inShape[1], inShape[2]
	cOut, cPerGroup, k := wShape[0], wShape[1], wShape[2]

	stride, dilation, groups := opts.Stride, opts.Dilation, opts.Groups
	if stride <= 0 {
		stride = 1
	}
	if dilation <= 0 {
		dilation = 1
	}
	if groups <= 0 {
		groups = 1
	}
	if c != cPerGroup*groups {
		return nil, fmt.Errorf("conv1d: input channels %d != weight channels %d * groups %d", c, cPerGroup, groups)
	}
	if cOut%groups != 0 {
		return nil, fmt.Errorf("conv1d: output channels %d not divisible by groups %d", cOut, groups)
	}

	var biasData []float32
	if bias != nil {
		if bias.DType() != tensor.Float32 {
			return nil, fmt.Errorf("conv1d: bias must be float32, got %s", bias.DType())
		}
		if bias.NumElements() != cOut {
			return nil, fmt.Errorf("conv1d: bias has %d elements, want %d", bias.NumElements(), cOut)
		}
		biasData = bias.AsFloat32()
	}

	lOut := (l+opts.PadLeft+opts.PadRight-dilation*(k-1)-1)/stride + 1
	if lOut <= 0 {
		return nil, fmt.Errorf("conv1d: non-positive output length %d (L=%d, K=%d, stride=%d, pads=%d/%d, dilation=%d)",
			lOut, l, k, stride, opts.PadLeft, opts.PadRight, dilation)
	}

	output, err := tensor.NewRaw(tensor.Shape{n, cOut, lOut}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("conv1d: %w", err)
	}

	inData := input.AsFloat32()
	wData := weight.AsFloat32()
	outData := output.AsFloat32()
	cOutPerGroup := cOut / groups

	parallel.ForBatch(n, cOut, func(b, co int) {
		g := co / cOutPerGroup
		cStart := g * cPerGroup
		outRow := outData[(b*cOut+co)*lOut : (b*cOut+co+1)*lOut]

		var acc float32
		for ol := 0; ol < lOut; ol++ {
			acc = 0
			base := ol*stride - opts.PadLeft
			for ci := 0; ci < cPerGroup; ci++ {
				inRow := inData[(b*c+cStart+ci)*l : (b*c+cStart+ci+1)*l]
				wRow := wData[(co*cPerGroup+ci)*k : (co*cPerGroup+ci+1)*k]
				for kk := 0; kk < k; kk++ {
					pos := base + kk*dilation
					if pos >= 0 && pos < l {
						acc += inRow[pos] * wRow[kk]
					}
				}
			}
			if biasData != nil {
				acc += biasData[co]
			}
			outRow[ol] = acc
		}
	}, cpu.par)

	return output, nil
}
