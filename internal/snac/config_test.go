package snac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfigJSON = `{
	"sampling_rate": 24000,
	"encoder_dim": 64,
	"encoder_rates": [2, 4, 8, 8],
	"latent_dim": null,
	"decoder_dim": 1536,
	"decoder_rates": [8, 8, 4, 2],
	"attn_window_size": null,
	"codebook_size": 4096,
	"codebook_dim": 8,
	"vq_strides": [4, 2, 1],
	"noise": true,
	"depthwise": true
}`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfigJSON))
	require.NoError(t, err)

	assert.Equal(t, 24000, cfg.SamplingRate)
	assert.Equal(t, []int{8, 8, 4, 2}, cfg.DecoderRates)
	assert.Equal(t, []int{4, 2, 1}, cfg.VQStrides)
	assert.True(t, cfg.Noise)
	assert.True(t, cfg.Depthwise)

	// latent_dim null: derived as encoder_dim * 2^len(encoder_rates).
	assert.Equal(t, 1024, cfg.LatentDim())
	assert.Equal(t, 512, cfg.HopLength())
	assert.Equal(t, 3, cfg.NumLevels())
}

func TestParseConfigExplicitLatentDim(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
		"sampling_rate": 44100,
		"latent_dim": 768,
		"decoder_dim": 1536,
		"decoder_rates": [8, 8, 4, 2],
		"codebook_size": 4096,
		"codebook_dim": 8,
		"vq_strides": [8, 4, 2, 1],
		"noise": true,
		"depthwise": true
	}`))
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.LatentDim())
	assert.Equal(t, 4, cfg.NumLevels())
}

func TestParseConfigRejectsAttention(t *testing.T) {
	_, err := ParseConfig([]byte(`{
		"sampling_rate": 24000,
		"encoder_dim": 64,
		"encoder_rates": [2, 4, 8, 8],
		"decoder_dim": 1536,
		"decoder_rates": [8, 8, 4, 2],
		"attn_window_size": 32,
		"codebook_size": 4096,
		"codebook_dim": 8,
		"vq_strides": [4, 2, 1],
		"noise": true,
		"depthwise": true
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attention")
}

func TestConfigValidation(t *testing.T) {
	base := func() *Config {
		cfg, err := ParseConfig([]byte(sampleConfigJSON))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.VQStrides = []int{1, 2, 4}
	assert.Error(t, cfg.Validate(), "increasing strides must be rejected")

	cfg = base()
	cfg.VQStrides = []int{4, 2}
	assert.Error(t, cfg.Validate(), "finest stride must be 1")

	cfg = base()
	cfg.SamplingRate = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DecoderRates = nil
	assert.Error(t, cfg.Validate())
}

func TestParseConfigBadJSON(t *testing.T) {
	_, err := ParseConfig([]byte("{not json"))
	assert.Error(t, err)
}
