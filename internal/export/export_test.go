package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snac-ml/snacx/internal/hub"
	"github.com/snac-ml/snacx/internal/onnx"
	"github.com/snac-ml/snacx/internal/tensor"
	"github.com/snac-ml/snacx/internal/weights"
)

const tinyConfigJSON = `{
	"sampling_rate": 24000,
	"latent_dim": 16,
	"decoder_dim": 16,
	"decoder_rates": [2, 2],
	"codebook_size": 8,
	"codebook_dim": 4,
	"vq_strides": [2, 1],
	"noise": true,
	"depthwise": true
}`

// tinyCheckpoint fabricates every weight the builder needs for the config
// above, stored under the weight-norm names a real checkpoint uses so the
// folding path is exercised too.
func tinyCheckpoint(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()
	sd := make(map[string]*tensor.RawTensor)

	put := func(name string, shape tensor.Shape, value float32) {
		raw, err := tensor.FullRaw(shape, value, tensor.Float32)
		require.NoError(t, err)
		sd[name] = raw
	}

	const (
		latent       = 16
		decoderDim   = 16
		codebookSize = 8
		codebookDim  = 4
	)

	for level := 0; level < 2; level++ {
		put(fmt.Sprintf("quantizer.quantizers.%d.codebook.weight", level), tensor.Shape{codebookSize, codebookDim}, 0.01)
		put(fmt.Sprintf("quantizer.quantizers.%d.out_proj.weight", level), tensor.Shape{latent, codebookDim, 1}, 0.1)
		put(fmt.Sprintf("quantizer.quantizers.%d.out_proj.bias", level), tensor.Shape{latent}, 0)
	}

	// Stem stored in weight-norm form: g scales each output row of v.
	putNormed := func(name string, shape tensor.Shape, value float32) {
		raw, err := tensor.FullRaw(shape, value, tensor.Float32)
		require.NoError(t, err)
		sd[name+"_v"] = raw
		g, err := tensor.FullRaw(tensor.Shape{shape[0], 1, 1}, 1, tensor.Float32)
		require.NoError(t, err)
		sd[name+"_g"] = g
	}

	putNormed("decoder.model.0.weight", tensor.Shape{latent, 1, 7}, 0.05)
	put("decoder.model.0.bias", tensor.Shape{latent}, 0)
	put("decoder.model.1.weight", tensor.Shape{decoderDim, latent, 1}, 0.05)
	put("decoder.model.1.bias", tensor.Shape{decoderDim}, 0)

	layer := 2
	channels := decoderDim
	for _, rate := range []int{2, 2} {
		cIn, cOut := channels, channels/2
		put(fmt.Sprintf("decoder.model.%d.block.0.alpha", layer), tensor.Shape{1, cIn, 1}, 1)
		put(fmt.Sprintf("decoder.model.%d.block.1.weight", layer), tensor.Shape{cIn, cOut, 2 * rate}, 0.05)
		put(fmt.Sprintf("decoder.model.%d.block.1.bias", layer), tensor.Shape{cOut}, 0)
		put(fmt.Sprintf("decoder.model.%d.block.2.linear.weight", layer), tensor.Shape{cOut, cOut, 1}, 0.01)
		for sub := 3; sub <= 5; sub++ {
			put(fmt.Sprintf("decoder.model.%d.block.%d.block.0.alpha", layer, sub), tensor.Shape{1, cOut, 1}, 1)
			put(fmt.Sprintf("decoder.model.%d.block.%d.block.1.weight", layer, sub), tensor.Shape{cOut, 1, 7}, 0.05)
			put(fmt.Sprintf("decoder.model.%d.block.%d.block.1.bias", layer, sub), tensor.Shape{cOut}, 0)
			put(fmt.Sprintf("decoder.model.%d.block.%d.block.2.alpha", layer, sub), tensor.Shape{1, cOut, 1}, 1)
			put(fmt.Sprintf("decoder.model.%d.block.%d.block.3.weight", layer, sub), tensor.Shape{cOut, cOut, 1}, 0.05)
			put(fmt.Sprintf("decoder.model.%d.block.%d.block.3.bias", layer, sub), tensor.Shape{cOut}, 0)
		}
		channels = cOut
		layer++
	}

	put(fmt.Sprintf("decoder.model.%d.alpha", layer), tensor.Shape{1, channels, 1}, 1)
	put(fmt.Sprintf("decoder.model.%d.weight", layer+1), tensor.Shape{1, channels, 7}, 0.05)
	put(fmt.Sprintf("decoder.model.%d.bias", layer+1), tensor.Shape{1}, 0)

	return sd
}

// writeModelDir lays out config.json and model.safetensors like a local
// checkpoint directory.
func writeModelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(tinyConfigJSON), 0o644))
	require.NoError(t, weights.WriteSafeTensors(filepath.Join(dir, SafetensorsFile), tinyCheckpoint(t), nil))
	return dir
}

func TestRunLocalDir(t *testing.T) {
	dir := writeModelDir(t)
	out := filepath.Join(t.TempDir(), "snac.onnx")

	var stdout bytes.Buffer
	report, err := Run(context.Background(), Options{
		LocalDir:   dir,
		OutputPath: out,
		Stdout:     &stdout,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.True(t, report.Verified)
	assert.Equal(t, out, report.OutputPath)
	assert.Greater(t, report.NodeCount, 0)
	assert.Greater(t, report.WeightCount, 0)
	assert.Greater(t, report.FileSize, int64(0))
	// Batch-2 case runs 14 finest steps at hop 4.
	assert.Equal(t, 56, report.AudioSamples)

	assert.Equal(t, "Loading SNAC model...\n"+
		"Exporting to "+out+"...\n"+
		"Export complete.\n", stdout.String())

	// The written file parses and carries the expected interface.
	info, err := onnx.GetModelInfo(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"codes_0", "codes_1"}, info.InputNames)
	assert.Equal(t, []string{"audio"}, info.OutputNames)
}

func TestRunFromHub(t *testing.T) {
	dir := writeModelDir(t)
	checkpoint, err := os.ReadFile(filepath.Join(dir, SafetensorsFile))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/test/snac_tiny/resolve/main/" + ConfigFile:
			_, _ = w.Write([]byte(tinyConfigJSON))
		case "/test/snac_tiny/resolve/main/" + SafetensorsFile:
			_, _ = w.Write(checkpoint)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "snac.onnx")
	report, err := Run(context.Background(), Options{
		Repo:        "test/snac_tiny",
		Revision:    "main",
		OutputPath:  out,
		HubEndpoint: server.URL,
		CacheDir:    t.TempDir(),
		Stdout:      &bytes.Buffer{},
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.True(t, report.Verified)
}

func TestRunHubFallsBackToTorchName(t *testing.T) {
	// Repos without a safetensors file are still reachable through the
	// pickle name; here the server rejects the pickle too, so the error
	// must carry both failures and the unavailable class.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/test/gone/resolve/main/"+ConfigFile {
			_, _ = w.Write([]byte(tinyConfigJSON))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := Run(context.Background(), Options{
		Repo:        "test/gone",
		Revision:    "main",
		OutputPath:  filepath.Join(t.TempDir(), "snac.onnx"),
		HubEndpoint: server.URL,
		CacheDir:    t.TempDir(),
		Stdout:      &bytes.Buffer{},
		Logger:      zerolog.Nop(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, hub.ErrModelUnavailable)
}

func TestRunLocalDirMissingConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{
		LocalDir:   t.TempDir(),
		OutputPath: filepath.Join(t.TempDir(), "snac.onnx"),
		Stdout:     &bytes.Buffer{},
		Logger:     zerolog.Nop(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, hub.ErrModelUnavailable)
}

func TestRunLocalDirMissingCheckpoint(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(tinyConfigJSON), 0o644))

	out := filepath.Join(t.TempDir(), "snac.onnx")
	_, err := Run(context.Background(), Options{
		LocalDir:   dir,
		OutputPath: out,
		Stdout:     &bytes.Buffer{},
		Logger:     zerolog.Nop(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, hub.ErrModelUnavailable)

	// No partial output on failure.
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSkipVerify(t *testing.T) {
	dir := writeModelDir(t)
	out := filepath.Join(t.TempDir(), "snac.onnx")

	report, err := Run(context.Background(), Options{
		LocalDir:   dir,
		OutputPath: out,
		SkipVerify: true,
		Stdout:     &bytes.Buffer{},
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.False(t, report.Verified)
	assert.Zero(t, report.AudioSamples)
}
