package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/snac-ml/snacx/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download a SNAC checkpoint and export its decoder to ONNX",
	RunE:  runExport,
}

func init() {
	addExportFlags(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	// Rebind so the invoked command's flag values win over the root's.
	bindFlags(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := export.Run(ctx, export.Options{
		Repo:            cfg.Export.Repo,
		Revision:        cfg.Export.Revision,
		LocalDir:        cfg.Export.LocalDir,
		OutputPath:      cfg.Export.Output,
		Token:           cfg.Hub.Token,
		CacheDir:        cfg.Hub.CacheDir,
		DownloadTimeout: cfg.Hub.Timeout,
		HubEndpoint:     cfg.Hub.Endpoint,
		SkipVerify:      cfg.Export.SkipVerify,
		DisableNoise:    cfg.Export.NoNoise,
		Opset:           cfg.Export.Opset,
		VerifyLen:       cfg.Export.DummyLen,
		VerifyBatch:     cfg.Export.Batch,
		ProducerVersion: Version,
		Logger:          log,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("output", report.OutputPath).
		Int("nodes", report.NodeCount).
		Int("weights", report.WeightCount).
		Bool("verified", report.Verified).
		Msg("export finished")
	return nil
}
