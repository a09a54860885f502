package snac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraitsFromMetadata(t *testing.T) {
	traits, err := TraitsFromMetadata(map[string]string{
		"model_type":    "snac",
		"sampling_rate": "24000",
		"hop_length":    "512",
		"levels":        "3",
		"vq_strides":    "4,2,1",
		"codebook_size": "4096",
	})
	require.NoError(t, err)

	assert.Equal(t, 24000, traits.SamplingRate)
	assert.Equal(t, 512, traits.HopLength)
	assert.Equal(t, []int{4, 2, 1}, traits.VQStrides)
	assert.Equal(t, 4096, traits.CodebookSize)
}

func TestTraitsFromMetadataErrors(t *testing.T) {
	_, err := TraitsFromMetadata(map[string]string{"model_type": "bert"})
	assert.Error(t, err)

	_, err = TraitsFromMetadata(map[string]string{
		"model_type":    "snac",
		"sampling_rate": "24000",
		"hop_length":    "512",
		"levels":        "3",
		"vq_strides":    "4,2",
		"codebook_size": "4096",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strides")

	_, err = TraitsFromMetadata(map[string]string{
		"model_type":    "snac",
		"sampling_rate": "x",
	})
	assert.Error(t, err)
}

func TestBuilderMetadataRoundTripsThroughTraits(t *testing.T) {
	cfg := tinyConfig()
	model, err := BuildDecoderGraph(cfg, tinyStateDict(t, cfg), BuildOptions{})
	require.NoError(t, err)

	meta := make(map[string]string)
	for _, entry := range model.MetadataProps {
		meta[entry.Key] = entry.Value
	}

	traits, err := TraitsFromMetadata(meta)
	require.NoError(t, err)
	assert.Equal(t, cfg.HopLength(), traits.HopLength)
	assert.Equal(t, cfg.VQStrides, traits.VQStrides)
	assert.Equal(t, cfg.CodebookSize, traits.CodebookSize)
}
