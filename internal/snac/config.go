// Package snac models the SNAC neural audio codec: its configuration
// file, the token frame layout used by speech LLMs, and the construction
// of an ONNX decoder graph from checkpoint weights.
package snac

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config mirrors the config.json that ships with SNAC checkpoints.
// Pointer fields are nullable in the file.
type Config struct {
	SamplingRate   int   `json:"sampling_rate"`
	EncoderDim     int   `json:"encoder_dim"`
	EncoderRates   []int `json:"encoder_rates"`
	LatentDimRaw   *int  `json:"latent_dim"`
	DecoderDim     int   `json:"decoder_dim"`
	DecoderRates   []int `json:"decoder_rates"`
	AttnWindowSize *int  `json:"attn_window_size"`
	CodebookSize   int   `json:"codebook_size"`
	CodebookDim    int   `json:"codebook_dim"`
	VQStrides      []int `json:"vq_strides"`
	Noise          bool  `json:"noise"`
	Depthwise      bool  `json:"depthwise"`
}

// LoadConfig reads and validates a SNAC config file.
func LoadConfig(path string) (*Config, error) {
	//nolint:gosec // G304: path is user input, file inclusion is the point
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates config JSON.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for internal consistency and for
// features the exporter does not handle.
func (c *Config) Validate() error {
	if c.SamplingRate <= 0 {
		return fmt.Errorf("sampling_rate must be positive, got %d", c.SamplingRate)
	}
	if c.DecoderDim <= 0 {
		return fmt.Errorf("decoder_dim must be positive, got %d", c.DecoderDim)
	}
	if len(c.DecoderRates) == 0 {
		return fmt.Errorf("decoder_rates must not be empty")
	}
	for _, r := range c.DecoderRates {
		if r <= 0 {
			return fmt.Errorf("decoder_rates must be positive, got %v", c.DecoderRates)
		}
	}
	if c.CodebookSize <= 0 || c.CodebookDim <= 0 {
		return fmt.Errorf("codebook_size and codebook_dim must be positive, got %d and %d",
			c.CodebookSize, c.CodebookDim)
	}
	if len(c.VQStrides) == 0 {
		return fmt.Errorf("vq_strides must not be empty")
	}
	for i, s := range c.VQStrides {
		if s <= 0 {
			return fmt.Errorf("vq_strides must be positive, got %v", c.VQStrides)
		}
		if i > 0 && s > c.VQStrides[i-1] {
			return fmt.Errorf("vq_strides must be non-increasing, got %v", c.VQStrides)
		}
	}
	if c.VQStrides[len(c.VQStrides)-1] != 1 {
		return fmt.Errorf("the finest vq stride must be 1, got %v", c.VQStrides)
	}
	if c.AttnWindowSize != nil {
		return fmt.Errorf("attn_window_size %d: local attention is not supported", *c.AttnWindowSize)
	}
	if c.LatentDimRaw == nil && (c.EncoderDim <= 0 || len(c.EncoderRates) == 0) {
		return fmt.Errorf("latent_dim is null and cannot be derived without encoder_dim and encoder_rates")
	}
	return nil
}

// LatentDim returns the channel width entering the decoder. When the file
// leaves latent_dim null it follows the encoder: encoder_dim doubled once
// per encoder stage.
func (c *Config) LatentDim() int {
	if c.LatentDimRaw != nil {
		return *c.LatentDimRaw
	}
	dim := c.EncoderDim
	for range c.EncoderRates {
		dim *= 2
	}
	return dim
}

// HopLength returns the number of audio samples produced per finest-level
// code, the product of the decoder upsampling rates.
func (c *Config) HopLength() int {
	hop := 1
	for _, r := range c.DecoderRates {
		hop *= r
	}
	return hop
}

// NumLevels returns the number of codebook levels.
func (c *Config) NumLevels() int {
	return len(c.VQStrides)
}

// LevelRatio returns how many fine-grained time steps one step of level
// i spans, relative to the finest level.
func (c *Config) LevelRatio(level int) int {
	return c.VQStrides[level]
}
