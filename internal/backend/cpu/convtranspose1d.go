package cpu

import (
	"fmt"

	"github.com/snac-ml/snacx/internal/parallel"
	"github.com/snac-ml/snacx/internal/tensor"
)

// ConvTranspose1D computes a grouped transposed 1-D convolution.
//
// Input shape:  [N, C, L]
// Weight shape: [C, COut/groups, K]
// Bias shape:   [COut] (optional, may be nil)
// Output shape: [N, COut, LOut] with
// LOut = (L-1)*stride - (padLeft+padRight) + dilation*(K-1) + 1 + outputPadding.
//
// Each (batch, output channel) row is computed independently by gathering the
// input positions that contribute to it, so the parallel split has no write
// contention.
func (cpu *CPUBackend) ConvTranspose1D(input, weight, bias *tensor.RawTensor, opts tensor.ConvOpts) (*tensor.RawTensor, error) {
	inShape := input.Shape()
	wShape := weight.Shape()
	if len(inShape) != 3 {
		return nil, fmt.Errorf("convtranspose1d: input must be 3D [N,C,L], got %dD", len(inShape))
	}
	if len(wShape) != 3 {
		return nil, fmt.Errorf("convtranspose1d: weight must be 3D [C,COut/groups,K], got %dD", len(wShape))
	}
	if input.DType() != tensor.Float32 || weight.DType() != tensor.Float32 {
		return nil, fmt.Errorf("convtranspose1d: float32 tensors required, got %s/%s", input.DType(), weight.DType())
	}

	n, c, l := inShape[0], inShape[1], inShape[2]
	wC, cOutPerGroup, k := wShape[0], wShape[1], wShape[2]

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
	if wC != c {
		return nil, fmt.Errorf("convtranspose1d: weight channels %d != input channels %d", wC, c)
	}
	if c%groups != 0 {
		return nil, fmt.Errorf("convtranspose1d: input channels %d not divisible by groups %d", c, groups)
	}
	cOut := cOutPerGroup * groups
	cPerGroup := c / groups

	var biasData []float32
	if bias != nil {
		if bias.DType() != tensor.Float32 {
			return nil, fmt.Errorf("convtranspose1d: bias must be float32, got %s", bias.DType())
		}
		if bias.NumElements() != cOut {
			return nil, fmt.Errorf("convtranspose1d: bias has %d elements, want %d", bias.NumElements(), cOut)
		}
		biasData = bias.AsFloat32()
	}

	lOut := (l-1)*stride - (opts.PadLeft + opts.PadRight) + dilation*(k-1) + 1 + opts.OutputPadding
	if lOut <= 0 {
		return nil, fmt.Errorf("convtranspose1d: non-positive output length %d (L=%d, K=%d, stride=%d, pads=%d/%d)",
			lOut, l, k, stride, opts.PadLeft, opts.PadRight)
	}

	output, err := tensor.NewRaw(tensor.Shape{n, cOut, lOut}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("convtranspose1d: %w", err)
	}

	inData := input.AsFloat32()
	wData := weight.AsFloat32()
	outData := output.AsFloat32()

	parallel.ForBatch(n, cOut, func(b, co int) {
		g := co / cOutPerGroup
		coInGroup := co % cOutPerGroup
		cStart := g * cPerGroup
		outRow := outData[(b*cOut+co)*lOut : (b*cOut+co+1)*lOut]

		if biasData != nil {
			for i := range outRow {
				outRow[i] = biasData[co]
			}
		}

		// output[ol] += input[il] * w[kk] wherever
		// ol == il*stride + kk*dilation - padLeft.
		for ci := 0; ci < cPerGroup; ci++ {
			inRow := inData[(b*c+cStart+ci)*l : (b*c+cStart+ci+1)*l]
			wRow := wData[((cStart+ci)*cOutPerGroup+coInGroup)*k : ((cStart+ci)*cOutPerGroup+coInGroup+1)*k]
			for il := 0; il < l; il++ {
				v := inRow[il]
				if v == 0 {
					continue
				}
				base := il*stride - opts.PadLeft
				for kk := 0; kk < k; kk++ {
					ol := base + kk*dilation
					if ol >= 0 && ol < lOut {
						outRow[ol] += v * wRow[kk]
					}
				}
			}
		}
	}, cpu.par)

	return output, nil
}
