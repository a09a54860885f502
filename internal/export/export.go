// Package export drives the end-to-end pipeline: resolve the checkpoint,
// fold its weights, build the ONNX decoder graph, write it out, and prove
// the written file loads and runs.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/snac-ml/snacx/internal/backend/cpu"
	"github.com/snac-ml/snacx/internal/hub"
	"github.com/snac-ml/snacx/internal/onnx"
	"github.com/snac-ml/snacx/internal/snac"
	"github.com/snac-ml/snacx/internal/tensor"
	"github.com/snac-ml/snacx/internal/weights"
)

// Model repository file names.
const (
	ConfigFile      = "config.json"
	SafetensorsFile = "model.safetensors"
	TorchFile       = "pytorch_model.bin"
)

// Options configures an export run.
type Options struct {
	// Repo is the hub repository id, e.g. "hubertsiuzdak/snac_24khz".
	Repo string

	// Revision is the git revision to resolve files at.
	Revision string

	// LocalDir, when set, bypasses the hub and reads config.json and the
	// checkpoint from a local directory.
	LocalDir string

	// OutputPath is where the ONNX file is written.
	OutputPath string

	// Token authenticates against gated hub repos.
	Token string

	// CacheDir overrides the hub download cache location.
	CacheDir string

	// DownloadTimeout bounds each hub download.
	DownloadTimeout time.Duration

	// HubEndpoint overrides the hub base URL. Used by tests.
	HubEndpoint string

	// SkipVerify disables the post-export load-and-run check.
	SkipVerify bool

	// DisableNoise builds a deterministic decoder without the noise
	// injection branches.
	DisableNoise bool

	// Opset overrides the stamped ONNX opset version. Zero keeps the
	// default.
	Opset int64

	// VerifyLen is the finest-level dummy code length for the first
	// verification run. Zero picks a length equivalent to the traced
	// default.
	VerifyLen int

	// VerifyBatch is the batch size for the first verification run.
	// Zero means 1.
	VerifyBatch int

	// ProducerVersion is stamped into the model header.
	ProducerVersion string

	// Stdout receives the progress lines. Defaults to os.Stdout.
	Stdout io.Writer

	Logger zerolog.Logger
}

// Report summarizes a completed export.
type Report struct {
	OutputPath   string
	FileSize     int64
	Config       *snac.Config
	NodeCount    int
	WeightCount  int
	Verified     bool
	AudioSamples int // samples produced during verification
}

// Run executes the export pipeline.
func Run(ctx context.Context, opts Options) (*Report, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	fmt.Fprintln(stdout, "Loading SNAC model...")

	configPath, checkpointPath, err := resolveFiles(ctx, opts)
	if err != nil {
		return nil, err
	}

	cfg, err := snac.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info().
		Int("sampling_rate", cfg.SamplingRate).
		Int("hop_length", cfg.HopLength()).
		Int("levels", cfg.NumLevels()).
		Msg("config loaded")

	stateDict, err := weights.LoadFolded(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint %s: %w", checkpointPath, err)
	}
	opts.Logger.Info().Int("tensors", len(stateDict)).Msg("weights folded")

	fmt.Fprintf(stdout, "Exporting to %s...\n", opts.OutputPath)

	source := opts.Repo
	if opts.LocalDir != "" {
		source = opts.LocalDir
	}
	model, err := snac.BuildDecoderGraph(cfg, stateDict, snac.BuildOptions{
		ProducerVersion: opts.ProducerVersion,
		OpsetVersion:    opts.Opset,
		DisableNoise:    opts.DisableNoise,
		Metadata:        map[string]string{"source": source},
	})
	if err != nil {
		return nil, fmt.Errorf("building decoder graph: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := onnx.WriteFile(opts.OutputPath, model); err != nil {
		return nil, err
	}

	report := &Report{
		OutputPath:  opts.OutputPath,
		Config:      cfg,
		NodeCount:   len(model.Graph.Nodes),
		WeightCount: len(model.Graph.Initializers),
	}
	if st, err := os.Stat(opts.OutputPath); err == nil {
		report.FileSize = st.Size()
	}

	if !opts.SkipVerify {
		samples, err := verify(opts.OutputPath, cfg, opts)
		if err != nil {
			// A model that fails its own verification is worse than no
			// model.
			_ = os.Remove(opts.OutputPath)
			return nil, fmt.Errorf("verifying exported model: %w", err)
		}
		report.Verified = true
		report.AudioSamples = samples
		opts.Logger.Info().Int("samples", samples).Msg("verification passed")
	}

	fmt.Fprintln(stdout, "Export complete.")
	return report, nil
}

// resolveFiles locates config.json and the checkpoint, downloading them
// from the hub unless a local directory was given.
func resolveFiles(ctx context.Context, opts Options) (configPath, checkpointPath string, err error) {
	if opts.LocalDir != "" {
		configPath = filepath.Join(opts.LocalDir, ConfigFile)
		if _, err := os.Stat(configPath); err != nil {
			return "", "", fmt.Errorf("%w: %s has no %s", hub.ErrModelUnavailable, opts.LocalDir, ConfigFile)
		}
		for _, name := range []string{SafetensorsFile, TorchFile} {
			candidate := filepath.Join(opts.LocalDir, name)
			if _, err := os.Stat(candidate); err == nil {
				return configPath, candidate, nil
			}
		}
		return "", "", fmt.Errorf("%w: %s has no checkpoint file", hub.ErrModelUnavailable, opts.LocalDir)
	}

	client := hub.New(hub.Options{
		Endpoint: opts.HubEndpoint,
		CacheDir: opts.CacheDir,
		Token:    opts.Token,
		Timeout:  opts.DownloadTimeout,
		Logger:   opts.Logger,
	})

	configPath, err = client.Download(ctx, opts.Repo, opts.Revision, ConfigFile)
	if err != nil {
		return "", "", err
	}

	// Prefer safetensors; fall back to the legacy pickle checkpoint.
	checkpointPath, err = client.Download(ctx, opts.Repo, opts.Revision, SafetensorsFile)
	if err == nil {
		return configPath, checkpointPath, nil
	}
	checkpointPath, torchErr := client.Download(ctx, opts.Repo, opts.Revision, TorchFile)
	if torchErr != nil {
		return "", "", fmt.Errorf("%w (safetensors: %v)", torchErr, err)
	}
	return configPath, checkpointPath, nil
}

// verify reloads the written file in strict mode and runs it at two
// batch/length combinations, checking the audio shape each time.
func verify(path string, cfg *snac.Config, opts Options) (int, error) {
	model, err := onnx.Load(path, cpu.New(), onnx.LoadOptions{StrictMode: true})
	if err != nil {
		return 0, err
	}

	if got, want := len(model.InputNames()), cfg.NumLevels(); got != want {
		return 0, fmt.Errorf("model has %d inputs, want %d", got, want)
	}

	coarse := cfg.VQStrides[0]
	firstLen := opts.VerifyLen
	if firstLen == 0 {
		firstLen = 10 * coarse
	}
	if firstLen%coarse != 0 {
		return 0, fmt.Errorf("dummy length %d is not a multiple of the coarsest stride %d", firstLen, coarse)
	}
	firstBatch := opts.VerifyBatch
	if firstBatch == 0 {
		firstBatch = 1
	}
	cases := []struct {
		batch       int
		finestSteps int
	}{
		{firstBatch, firstLen},
		{2, 7 * coarse},
	}

	var lastSamples int
	for _, tc := range cases {
		inputs, err := dummyInputs(cfg, tc.batch, tc.finestSteps)
		if err != nil {
			return 0, err
		}

		outputs, err := model.ForwardNamed(inputs)
		if err != nil {
			return 0, fmt.Errorf("running batch %d: %w", tc.batch, err)
		}

		audio, ok := outputs["audio"]
		if !ok {
			return 0, fmt.Errorf("model produced no audio output")
		}
		want := tensor.Shape{tc.batch, 1, snac.ExpectedAudioLength(cfg, tc.finestSteps)}
		if !audio.Shape().Equal(want) {
			return 0, fmt.Errorf("audio shape %v, want %v", audio.Shape(), want)
		}
		if audio.DType() != tensor.Float32 {
			return 0, fmt.Errorf("audio dtype %v, want float32", audio.DType())
		}
		lastSamples = want[2]
	}

	return lastSamples, nil
}

// dummyInputs samples random codes at each level for the given finest
// step count. Values stay in [0, 1024) even for larger codebooks.
func dummyInputs(cfg *snac.Config, batch, finestSteps int) (map[string]*tensor.RawTensor, error) {
	limit := int64(cfg.CodebookSize)
	if limit > 1024 {
		limit = 1024
	}

	inputs := make(map[string]*tensor.RawTensor, cfg.NumLevels())
	for level := 0; level < cfg.NumLevels(); level++ {
		steps := finestSteps / cfg.VQStrides[level]
		codes, err := tensor.RandintRaw(tensor.Shape{batch, steps}, 0, limit, tensor.Int32)
		if err != nil {
			return nil, err
		}
		inputs[fmt.Sprintf("codes_%d", level)] = codes
	}
	return inputs, nil
}
