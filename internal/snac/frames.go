package snac

import "fmt"

// Token frame layout used by speech LLMs that emit SNAC codes as a flat
// token stream. Each frame covers one coarse time step and interleaves
// the three levels as
//
//	[c0, c1[2t], c2[4t], c2[4t+1], c1[2t+1], c2[4t+2], c2[4t+3]]
//
// with every slot shifted into its own id range so the language model can
// tell slots apart.
const (
	FrameSize = 7

	// TokenOffset is the id of slot 0's code 0; slot k starts at
	// TokenOffset + k*TokenStride.
	TokenOffset = 10
	TokenStride = 4096
)

// frameSlots maps each slot in a frame to its codebook level.
var frameSlots = [FrameSize]int{0, 1, 2, 2, 1, 2, 2}

// PackFrames flattens per-level code sequences into the 7-token frame
// stream. Level lengths must follow the 1:2:4 hierarchy.
func PackFrames(codes [3][]int32) ([]int32, error) {
	n := len(codes[0])
	if len(codes[1]) != 2*n || len(codes[2]) != 4*n {
		return nil, fmt.Errorf("code lengths %d:%d:%d do not follow the 1:2:4 hierarchy",
			len(codes[0]), len(codes[1]), len(codes[2]))
	}

	tokens := make([]int32, 0, n*FrameSize)
	for t := 0; t < n; t++ {
		levelPos := [3]int{t, 2 * t, 4 * t}
		for slot, level := range frameSlots {
			code := codes[level][levelPos[level]]
			levelPos[level]++
			if code < 0 || int(code) >= TokenStride {
				return nil, fmt.Errorf("code %d at level %d out of range [0, %d)", code, level, TokenStride)
			}
			tokens = append(tokens, code+TokenOffset+int32(slot*TokenStride))
		}
	}
	return tokens, nil
}

// UnpackFrames splits a 7-token frame stream back into per-level code
// sequences, validating each slot's id range.
func UnpackFrames(tokens []int32) ([3][]int32, error) {
	var codes [3][]int32
	if len(tokens)%FrameSize != 0 {
		return codes, fmt.Errorf("token count %d is not a multiple of the frame size %d", len(tokens), FrameSize)
	}

	n := len(tokens) / FrameSize
	codes[0] = make([]int32, 0, n)
	codes[1] = make([]int32, 0, 2*n)
	codes[2] = make([]int32, 0, 4*n)

	for i, token := range tokens {
		slot := i % FrameSize
		lo := int32(TokenOffset + slot*TokenStride)
		if token < lo || token >= lo+TokenStride {
			return codes, fmt.Errorf("token %d at position %d outside slot %d range [%d, %d)",
				token, i, slot, lo, lo+TokenStride)
		}
		level := frameSlots[slot]
		codes[level] = append(codes[level], token-lo)
	}
	return codes, nil
}
