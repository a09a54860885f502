package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/snac-ml/snacx/internal/audio"
	"github.com/snac-ml/snacx/internal/backend/cpu"
	"github.com/snac-ml/snacx/internal/onnx"
	"github.com/snac-ml/snacx/internal/snac"
	"github.com/snac-ml/snacx/internal/tensor"
)

var decodeOutput string

var decodeCmd = &cobra.Command{
	Use:   "decode <model.onnx> <tokens-file>",
	Short: "Decode a token stream to a WAV file",
	Long: `decode runs an exported model on a stream of packed audio tokens
and writes the waveform as 16-bit PCM WAV.

The tokens file holds whitespace-separated integers in 7-token frame
order, as produced by speech LLMs that emit SNAC codes. Pass "-" to read
tokens from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeOutput, "wav", "o", "out.wav", "Output WAV path")
}

func runDecode(cmd *cobra.Command, args []string) error {
	tokens, err := readTokens(args[1])
	if err != nil {
		return err
	}

	codes, err := snac.UnpackFrames(tokens)
	if err != nil {
		return err
	}

	model, err := onnx.Load(args[0], cpu.New())
	if err != nil {
		return err
	}
	traits, err := snac.TraitsFromMetadata(model.Metadata())
	if err != nil {
		return err
	}
	if traits.Levels != len(codes) {
		return fmt.Errorf("token frames carry %d code levels but the model expects %d", len(codes), traits.Levels)
	}

	inputs := make(map[string]*tensor.RawTensor, len(codes))
	for level, levelCodes := range codes {
		t, err := tensor.FromInt32(tensor.Shape{1, len(levelCodes)}, levelCodes)
		if err != nil {
			return err
		}
		inputs[fmt.Sprintf("codes_%d", level)] = t
	}

	outputs, err := model.ForwardNamed(inputs)
	if err != nil {
		return fmt.Errorf("running model: %w", err)
	}
	out, ok := outputs["audio"]
	if !ok {
		return fmt.Errorf("model produced no audio output")
	}

	samples := out.AsFloat32()
	if err := audio.WriteWAV(decodeOutput, samples, traits.SamplingRate); err != nil {
		return err
	}

	fmt.Printf("Wrote %d samples (%.2fs) to %s\n",
		len(samples), float64(len(samples))/float64(traits.SamplingRate), decodeOutput)
	return nil
}

// readTokens parses whitespace-separated integers from a file or stdin.
func readTokens(path string) ([]int32, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var tokens []int32
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		n, err := strconv.ParseInt(scanner.Text(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad token %q: %w", scanner.Text(), err)
		}
		tokens = append(tokens, int32(n))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens in %s", path)
	}
	return tokens, nil
}
