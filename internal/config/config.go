// Package config holds the application configuration shared by the CLI
// commands.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the exporter.
type Config struct {
	Hub     HubConfig     `mapstructure:"hub"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// HubConfig holds model hub settings.
type HubConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	CacheDir string        `mapstructure:"cache_dir"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	Repo       string `mapstructure:"repo"`
	Revision   string `mapstructure:"revision"`
	LocalDir   string `mapstructure:"local_dir"`
	Output     string `mapstructure:"output"`
	Opset      int64  `mapstructure:"opset"`
	DummyLen   int    `mapstructure:"dummy_len"`
	Batch      int    `mapstructure:"batch"`
	SkipVerify bool   `mapstructure:"skip_verify"`
	NoNoise    bool   `mapstructure:"no_noise"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Hub: HubConfig{
			Endpoint: "https://huggingface.co",
			Timeout:  10 * time.Minute,
		},
		Export: ExportConfig{
			Repo:     "hubertsiuzdak/snac_24khz",
			Revision: "main",
			Output:   "snac.onnx",
			Opset:    18,
			DummyLen: 40,
			Batch:    1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// FromViper unmarshals the viper state on top of the defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Export.Repo == "" && c.Export.LocalDir == "" {
		return fmt.Errorf("either a hub repo or a local model directory is required")
	}
	if c.Export.Output == "" {
		return fmt.Errorf("output path must not be empty")
	}
	if c.Export.Revision == "" {
		c.Export.Revision = "main"
	}
	if c.Export.Opset < 0 {
		return fmt.Errorf("opset must not be negative, got %d", c.Export.Opset)
	}
	if c.Export.DummyLen < 0 || c.Export.Batch < 0 {
		return fmt.Errorf("dummy_len and batch must not be negative")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Logging.Format)
	}
	return nil
}
