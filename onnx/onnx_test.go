package onnx_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/snac-ml/snacx/backend/cpu"
	"github.com/snac-ml/snacx/onnx"
	"github.com/snac-ml/snacx/snac"
	"github.com/snac-ml/snacx/tensor"
)

// smallConfig is a single-level decoder without the noise branch or
// depthwise convolutions.
func smallConfig() *snac.Config {
	latent := 8
	return &snac.Config{
		SamplingRate: 24000,
		LatentDimRaw: &latent,
		DecoderDim:   8,
		DecoderRates: []int{2},
		CodebookSize: 8,
		CodebookDim:  4,
		VQStrides:    []int{1},
	}
}

func smallStateDict(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()
	sd := make(map[string]*tensor.RawTensor)

	put := func(name string, shape tensor.Shape, value float32) {
		raw, err := tensor.FullRaw(shape, value, tensor.Float32)
		if err != nil {
			t.Fatal(err)
		}
		sd[name] = raw
	}

	put("quantizer.quantizers.0.codebook.weight", tensor.Shape{8, 4}, 0.01)
	put("quantizer.quantizers.0.out_proj.weight", tensor.Shape{8, 4, 1}, 0.1)
	put("quantizer.quantizers.0.out_proj.bias", tensor.Shape{8}, 0)

	put("decoder.model.0.weight", tensor.Shape{8, 8, 7}, 0.05)
	put("decoder.model.0.bias", tensor.Shape{8}, 0)

	put("decoder.model.1.block.0.alpha", tensor.Shape{1, 8, 1}, 1)
	put("decoder.model.1.block.1.weight", tensor.Shape{8, 4, 4}, 0.05)
	put("decoder.model.1.block.1.bias", tensor.Shape{4}, 0)
	for sub := 2; sub <= 4; sub++ {
		prefix := fmt.Sprintf("decoder.model.1.block.%d.block.", sub)
		put(prefix+"0.alpha", tensor.Shape{1, 4, 1}, 1)
		put(prefix+"1.weight", tensor.Shape{4, 4, 7}, 0.05)
		put(prefix+"1.bias", tensor.Shape{4}, 0)
		put(prefix+"2.alpha", tensor.Shape{1, 4, 1}, 1)
		put(prefix+"3.weight", tensor.Shape{4, 4, 1}, 0.05)
		put(prefix+"3.bias", tensor.Shape{4}, 0)
	}

	put("decoder.model.2.alpha", tensor.Shape{1, 4, 1}, 1)
	put("decoder.model.3.weight", tensor.Shape{1, 4, 7}, 0.05)
	put("decoder.model.3.bias", tensor.Shape{1}, 0)

	return sd
}

func TestExportAndRunThroughPublicAPI(t *testing.T) {
	cfg := smallConfig()
	model, err := snac.BuildDecoderGraph(cfg, smallStateDict(t), snac.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "small.onnx")
	if err := onnx.WriteFile(path, model); err != nil {
		t.Fatal(err)
	}

	loaded, err := onnx.Load(path, cpu.New(), onnx.LoadOptions{StrictMode: true})
	if err != nil {
		t.Fatal(err)
	}

	codes, err := tensor.FromInt32(tensor.Shape{1, 3}, []int32{0, 3, 7})
	if err != nil {
		t.Fatal(err)
	}
	outputs, err := loaded.ForwardNamed(map[string]*tensor.RawTensor{"codes_0": codes})
	if err != nil {
		t.Fatal(err)
	}

	audio := outputs["audio"]
	if audio == nil {
		t.Fatal("no audio output")
	}
	want := tensor.Shape{1, 1, snac.ExpectedAudioLength(cfg, 3)}
	if !audio.Shape().Equal(want) {
		t.Fatalf("audio shape %v, want %v", audio.Shape(), want)
	}
}

func TestGetModelInfoFacade(t *testing.T) {
	cfg := smallConfig()
	model, err := snac.BuildDecoderGraph(cfg, smallStateDict(t), snac.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "small.onnx")
	if err := onnx.WriteFile(path, model); err != nil {
		t.Fatal(err)
	}

	info, err := onnx.GetModelInfo(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.ProducerName != "snacx" {
		t.Fatalf("producer = %q", info.ProducerName)
	}
	if len(info.InputNames) != 1 || info.InputNames[0] != "codes_0" {
		t.Fatalf("inputs = %v", info.InputNames)
	}
	if len(onnx.ListSupportedOps()) == 0 {
		t.Fatal("no supported ops listed")
	}
}
