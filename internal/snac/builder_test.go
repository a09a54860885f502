package snac

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snac-ml/snacx/internal/backend/cpu"
	"github.com/snac-ml/snacx/internal/onnx"
	"github.com/snac-ml/snacx/internal/tensor"
)

// tinyConfig is a scaled-down model with the same structural features as
// the published checkpoints: two code levels, depthwise convolutions, and
// a noise branch. Hop length is 2*2 = 4.
func tinyConfig() *Config {
	latent := 16
	return &Config{
		SamplingRate: 24000,
		LatentDimRaw: &latent,
		DecoderDim:   16,
		DecoderRates: []int{2, 2},
		CodebookSize: 8,
		CodebookDim:  4,
		VQStrides:    []int{2, 1},
		Noise:        true,
		Depthwise:    true,
	}
}

// tinyStateDict fabricates weights for tinyConfig with every parameter
// the builder looks up, filled with small constants.
func tinyStateDict(t *testing.T, cfg *Config) map[string]*tensor.RawTensor {
	t.Helper()
	sd := make(map[string]*tensor.RawTensor)

	put := func(name string, shape tensor.Shape, value float32) {
		raw, err := tensor.FullRaw(shape, value, tensor.Float32)
		require.NoError(t, err)
		sd[name] = raw
	}

	latent := cfg.LatentDim()
	for level := 0; level < cfg.NumLevels(); level++ {
		put(keyf("quantizer.quantizers.%d.codebook.weight", level), tensor.Shape{cfg.CodebookSize, cfg.CodebookDim}, 0.01)
		put(keyf("quantizer.quantizers.%d.out_proj.weight", level), tensor.Shape{latent, cfg.CodebookDim, 1}, 0.1)
		put(keyf("quantizer.quantizers.%d.out_proj.bias", level), tensor.Shape{latent}, 0)
	}

	// Depthwise stem and pointwise projection.
	put("decoder.model.0.weight", tensor.Shape{latent, 1, 7}, 0.05)
	put("decoder.model.0.bias", tensor.Shape{latent}, 0)
	put("decoder.model.1.weight", tensor.Shape{cfg.DecoderDim, latent, 1}, 0.05)
	put("decoder.model.1.bias", tensor.Shape{cfg.DecoderDim}, 0)

	layer := 2
	channels := cfg.DecoderDim
	for _, rate := range cfg.DecoderRates {
		cIn, cOut := channels, channels/2
		put(keyf("decoder.model.%d.block.0.alpha", layer), tensor.Shape{1, cIn, 1}, 1)
		put(keyf("decoder.model.%d.block.1.weight", layer), tensor.Shape{cIn, cOut, 2 * rate}, 0.05)
		put(keyf("decoder.model.%d.block.1.bias", layer), tensor.Shape{cOut}, 0)
		put(keyf("decoder.model.%d.block.2.linear.weight", layer), tensor.Shape{cOut, cOut, 1}, 0.01)
		for sub := 3; sub <= 5; sub++ {
			put(keyf("decoder.model.%d.block.%d.block.0.alpha", layer, sub), tensor.Shape{1, cOut, 1}, 1)
			put(keyf("decoder.model.%d.block.%d.block.1.weight", layer, sub), tensor.Shape{cOut, 1, 7}, 0.05)
			put(keyf("decoder.model.%d.block.%d.block.1.bias", layer, sub), tensor.Shape{cOut}, 0)
			put(keyf("decoder.model.%d.block.%d.block.2.alpha", layer, sub), tensor.Shape{1, cOut, 1}, 1)
			put(keyf("decoder.model.%d.block.%d.block.3.weight", layer, sub), tensor.Shape{cOut, cOut, 1}, 0.05)
			put(keyf("decoder.model.%d.block.%d.block.3.bias", layer, sub), tensor.Shape{cOut}, 0)
		}
		channels = cOut
		layer++
	}

	put(keyf("decoder.model.%d.alpha", layer), tensor.Shape{1, channels, 1}, 1)
	put(keyf("decoder.model.%d.weight", layer+1), tensor.Shape{1, channels, 7}, 0.05)
	put(keyf("decoder.model.%d.bias", layer+1), tensor.Shape{1}, 0)

	return sd
}

func keyf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

func TestBuildDecoderGraphHeader(t *testing.T) {
	cfg := tinyConfig()
	model, err := BuildDecoderGraph(cfg, tinyStateDict(t, cfg), BuildOptions{
		ProducerVersion: "0.1.0",
		Metadata:        map[string]string{"source": "test"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(8), model.IRVersion)
	assert.Equal(t, "snacx", model.ProducerName)
	require.Len(t, model.OpsetImport, 1)
	assert.Equal(t, int64(18), model.OpsetImport[0].Version)

	meta := make(map[string]string)
	for _, entry := range model.MetadataProps {
		meta[entry.Key] = entry.Value
	}
	assert.Equal(t, "snac", meta["model_type"])
	assert.Equal(t, "24000", meta["sampling_rate"])
	assert.Equal(t, "4", meta["hop_length"])
	assert.Equal(t, "2,1", meta["vq_strides"])
	assert.Equal(t, "8", meta["codebook_size"])
	assert.Equal(t, "test", meta["source"])

	g := model.Graph
	require.NotNil(t, g)
	require.Len(t, g.Inputs, 2)
	assert.Equal(t, "codes_0", g.Inputs[0].Name)
	assert.Equal(t, "codes_1", g.Inputs[1].Name)

	dims := g.Inputs[0].Type.TensorType.Shape.Dims
	require.Len(t, dims, 2)
	assert.Equal(t, "batch", dims[0].DimParam)
	assert.Equal(t, "time_0", dims[1].DimParam)

	require.Len(t, g.Outputs, 1)
	assert.Equal(t, "audio", g.Outputs[0].Name)
	outDims := g.Outputs[0].Type.TensorType.Shape.Dims
	require.Len(t, outDims, 3)
	assert.Equal(t, "batch", outDims[0].DimParam)
	assert.Equal(t, int64(1), outDims[1].DimValue)
	assert.Equal(t, "time", outDims[2].DimParam)
}

func TestBuildDecoderGraphExecutes(t *testing.T) {
	cfg := tinyConfig()
	model, err := BuildDecoderGraph(cfg, tinyStateDict(t, cfg), BuildOptions{})
	require.NoError(t, err)

	// Strict load proves every emitted op type has an implementation.
	exe, err := onnx.LoadFromProto(model, cpu.New(), onnx.LoadOptions{StrictMode: true})
	require.NoError(t, err)

	// Finest level has 6 steps, coarse has 3; audio = 6 * hop(4) = 24.
	codes0, err := tensor.FromInt32(tensor.Shape{1, 3}, []int32{1, 2, 3})
	require.NoError(t, err)
	codes1, err := tensor.FromInt32(tensor.Shape{1, 6}, []int32{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)

	outputs, err := exe.ForwardNamed(map[string]*tensor.RawTensor{
		"codes_0": codes0,
		"codes_1": codes1,
	})
	require.NoError(t, err)

	audio, ok := outputs["audio"]
	require.True(t, ok)
	assert.Equal(t, tensor.Shape{1, 1, 24}, audio.Shape())
	assert.Equal(t, tensor.Float32, audio.DType())

	// Tanh bounds the output.
	for i, v := range audio.AsFloat32() {
		assert.LessOrEqual(t, v, float32(1), "sample %d", i)
		assert.GreaterOrEqual(t, v, float32(-1), "sample %d", i)
	}
}

func TestBuildDecoderGraphBatch(t *testing.T) {
	cfg := tinyConfig()
	model, err := BuildDecoderGraph(cfg, tinyStateDict(t, cfg), BuildOptions{})
	require.NoError(t, err)

	exe, err := onnx.LoadFromProto(model, cpu.New(), onnx.DefaultLoadOptions())
	require.NoError(t, err)

	codes0, err := tensor.FromInt32(tensor.Shape{2, 2}, []int32{1, 2, 3, 4})
	require.NoError(t, err)
	codes1, err := tensor.FromInt32(tensor.Shape{2, 4}, []int32{0, 1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)

	outputs, err := exe.ForwardNamed(map[string]*tensor.RawTensor{
		"codes_0": codes0,
		"codes_1": codes1,
	})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 16}, outputs["audio"].Shape())
}

func TestBuildDecoderGraphNoNoise(t *testing.T) {
	cfg := tinyConfig()
	model, err := BuildDecoderGraph(cfg, tinyStateDict(t, cfg), BuildOptions{DisableNoise: true})
	require.NoError(t, err)

	for _, node := range model.Graph.Nodes {
		assert.NotEqual(t, "RandomNormalLike", node.OpType)
	}

	exe, err := onnx.LoadFromProto(model, cpu.New(), onnx.LoadOptions{StrictMode: true})
	require.NoError(t, err)

	codes0, err := tensor.FromInt32(tensor.Shape{1, 1}, []int32{5})
	require.NoError(t, err)
	codes1, err := tensor.FromInt32(tensor.Shape{1, 2}, []int32{6, 7})
	require.NoError(t, err)
	inputs := map[string]*tensor.RawTensor{"codes_0": codes0, "codes_1": codes1}

	// Without the noise branch the decoder is deterministic.
	first, err := exe.ForwardNamed(inputs)
	require.NoError(t, err)
	second, err := exe.ForwardNamed(inputs)
	require.NoError(t, err)
	assert.Equal(t, first["audio"].AsFloat32(), second["audio"].AsFloat32())
}

func TestBuildDecoderGraphOpsetOverride(t *testing.T) {
	cfg := tinyConfig()
	model, err := BuildDecoderGraph(cfg, tinyStateDict(t, cfg), BuildOptions{OpsetVersion: 17})
	require.NoError(t, err)
	require.Len(t, model.OpsetImport, 1)
	assert.Equal(t, int64(17), model.OpsetImport[0].Version)
}

func TestBuildDecoderGraphMissingWeight(t *testing.T) {
	cfg := tinyConfig()
	sd := tinyStateDict(t, cfg)
	delete(sd, "decoder.model.0.weight")

	_, err := BuildDecoderGraph(cfg, sd, BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoder.model.0.weight")
}

func TestBuildDecoderGraphWrongShape(t *testing.T) {
	cfg := tinyConfig()
	sd := tinyStateDict(t, cfg)

	bad, err := tensor.FullRaw(tensor.Shape{2, 2}, 0, tensor.Float32)
	require.NoError(t, err)
	sd["decoder.model.0.weight"] = bad

	_, err = BuildDecoderGraph(cfg, sd, BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape")
}

func TestBuildRoundTripsThroughCodec(t *testing.T) {
	cfg := tinyConfig()
	model, err := BuildDecoderGraph(cfg, tinyStateDict(t, cfg), BuildOptions{})
	require.NoError(t, err)

	parsed, err := onnx.Parse(onnx.Marshal(model))
	require.NoError(t, err)
	assert.Equal(t, len(model.Graph.Nodes), len(parsed.Graph.Nodes))
	assert.Equal(t, len(model.Graph.Initializers), len(parsed.Graph.Initializers))

	// The re-parsed graph must still execute.
	exe, err := onnx.LoadFromProto(parsed, cpu.New(), onnx.LoadOptions{StrictMode: true})
	require.NoError(t, err)

	codes0, _ := tensor.FromInt32(tensor.Shape{1, 1}, []int32{0})
	codes1, _ := tensor.FromInt32(tensor.Shape{1, 2}, []int32{0, 1})
	outputs, err := exe.ForwardNamed(map[string]*tensor.RawTensor{
		"codes_0": codes0,
		"codes_1": codes1,
	})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 8}, outputs["audio"].Shape())
}
