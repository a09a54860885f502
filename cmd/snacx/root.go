package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/snac-ml/snacx/internal/config"
	"github.com/snac-ml/snacx/internal/hub"
)

var (
	cfgFile string

	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "snacx",
	Short: "Export the SNAC audio codec decoder to ONNX",
	Long: `snacx converts SNAC neural audio codec checkpoints into standalone
ONNX decoder models.

Export the default 24 kHz model:
  snacx

Export a specific repo to a chosen path:
  snacx export --repo hubertsiuzdak/snac_44khz --output snac_44khz.onnx

Use a checkpoint already on disk:
  snacx export --local-dir ./snac_24khz

Use environment variables:
  SNACX_HUB_TOKEN=hf_... snacx`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExport,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("snacx %s\n", Version)
		fmt.Printf("  Commit:     %s\n", Commit)
		fmt.Printf("  Build Date: %s\n", BuildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./snacx.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	addExportFlags(rootCmd)
	bindFlags(rootCmd)

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(versionCmd)
}

// addExportFlags registers the export flag set on a command. The root
// command carries the same flags so a bare "snacx" run exports.
func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().String("repo", "hubertsiuzdak/snac_24khz", "Hub repository to export")
	cmd.Flags().String("revision", "main", "Hub revision")
	cmd.Flags().String("local-dir", "", "Local model directory (bypasses the hub)")
	cmd.Flags().StringP("output", "o", "snac.onnx", "Output ONNX path")
	cmd.Flags().String("token", "", "Hub access token for gated repos")
	cmd.Flags().String("cache-dir", "", "Download cache directory")
	cmd.Flags().Int64("opset", 18, "ONNX opset version to stamp")
	cmd.Flags().Int("dummy-len", 40, "Finest-level code length for the verification run")
	cmd.Flags().Int("batch", 1, "Batch size for the verification run")
	cmd.Flags().Bool("no-verify", false, "Skip the post-export verification run")
	cmd.Flags().Bool("no-noise", false, "Export a deterministic decoder without noise injection")
}

func bindFlags(cmd *cobra.Command) {
	bindings := []struct {
		key  string
		flag string
	}{
		{"export.repo", "repo"},
		{"export.revision", "revision"},
		{"export.local_dir", "local-dir"},
		{"export.output", "output"},
		{"export.opset", "opset"},
		{"export.dummy_len", "dummy-len"},
		{"export.batch", "batch"},
		{"export.skip_verify", "no-verify"},
		{"export.no_noise", "no-noise"},
		{"hub.token", "token"},
		{"hub.cache_dir", "cache-dir"},
		{"logging.level", "log-level"},
		{"logging.format", "log-format"},
	}

	for _, b := range bindings {
		flag := cmd.Flags().Lookup(b.flag)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(b.flag)
		}
		if flag == nil {
			continue
		}
		_ = viper.BindPFlag(b.key, flag)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("snacx")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SNACX")
	viper.AutomaticEnv()

	viper.BindEnv("hub.token", "SNACX_HUB_TOKEN", "HF_TOKEN")
	viper.BindEnv("hub.endpoint", "SNACX_HUB_ENDPOINT")
	viper.BindEnv("hub.cache_dir", "SNACX_CACHE_DIR")
	viper.BindEnv("export.repo", "SNACX_REPO")
	viper.BindEnv("export.output", "SNACX_OUTPUT")
	viper.BindEnv("logging.level", "SNACX_LOG_LEVEL")
	viper.BindEnv("logging.format", "SNACX_LOG_FORMAT")

	viper.SetDefault("hub.endpoint", "https://huggingface.co")
	viper.SetDefault("hub.timeout", 10*time.Minute)
	viper.SetDefault("export.repo", "hubertsiuzdak/snac_24khz")
	viper.SetDefault("export.revision", "main")
	viper.SetDefault("export.output", "snac.onnx")
	viper.SetDefault("export.opset", 18)
	viper.SetDefault("export.dummy_len", 40)
	viper.SetDefault("export.batch", 1)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

// setupLogger builds the diagnostic logger. It writes to stderr so the
// progress lines on stdout stay clean.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, hub.ErrModelUnavailable) {
			fmt.Fprintln(os.Stderr, "Error: could not obtain the SNAC model; check your network connection, pass --token for gated repos, or point --local-dir at a downloaded checkpoint.")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
