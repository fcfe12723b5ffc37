package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invoxel/invoice-pipeline/internal/config"
	"github.com/invoxel/invoice-pipeline/internal/extract"
	"github.com/invoxel/invoice-pipeline/internal/ingest"
	"github.com/invoxel/invoice-pipeline/internal/ledger"
	"github.com/invoxel/invoice-pipeline/internal/notify"
	"github.com/invoxel/invoice-pipeline/internal/parse"
	"github.com/invoxel/invoice-pipeline/internal/pipeline"
	"github.com/invoxel/invoice-pipeline/internal/report"
	"github.com/invoxel/invoice-pipeline/internal/validate"
)

func newProcessCmd() *cobra.Command {
	var (
		dir     string
		out     string
		workers int
		ocrFlag string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process a directory of PDF invoices and write a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			level, _ := cmd.Flags().GetString("log-level")
			logger := setupLogger(level)

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			switch ocrFlag {
			case "on":
				cfg.OCR.Enabled = true
			case "off":
				cfg.OCR.Enabled = false
			case "":
				// keep the configured value
			default:
				return fmt.Errorf("--ocr must be on or off, got %q", ocrFlag)
			}
			if out == "" {
				out = cfg.Report.OutputPath
			}
			if workers == 0 {
				workers = cfg.Pipeline.Workers
			}

			ctx := context.Background()

			patterns, err := parse.CompileSet(cfg.Patterns)
			if err != nil {
				return fmt.Errorf("invalid regex_patterns config: %w", err)
			}

			runLedger, err := ledger.Open(logger)
			if err != nil {
				return err
			}
			defer func() { _ = runLedger.Close() }()

			proc := pipeline.NewProcessor(
				logger,
				extract.NewExtractor(cfg.OCR, logger),
				parse.NewParser(patterns, logger),
				validate.NewValidator(logger),
			)
			batch := pipeline.NewBatch(logger, proc, runLedger, workers)

			files, err := ingest.ScanDirectory(dir)
			if err != nil {
				return fmt.Errorf("scan %s: %w", dir, err)
			}
			logger.Info("starting invoice processing", "dir", dir, "files", len(files), "ocr", cfg.OCR.Enabled)

			records := batch.Run(ctx, files, func(completed, total int, message string) {
				fmt.Printf("[%d/%d] %s\n", completed, total, message)
			})

			if err := writeReport(cfg, out, records); err != nil {
				logger.Error("report generation failed", "error", err)
			}

			notifier := notify.NewNotifier(cfg.Email, logger)
			if err := notifier.MaybeAlert(records); err != nil {
				logger.Error("alert notification failed", "error", err)
			}

			summary, err := runLedger.Summarize(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Batch processing complete!\n")
			fmt.Printf("- Files processed: %d\n", summary.Completed)
			fmt.Printf("- Failures: %d\n", summary.Failed)
			fmt.Printf("- Valid: %d, Invalid: %d\n", summary.Valid, summary.Invalid)
			fmt.Printf("- Output: %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of PDF invoices to process (required)")
	cmd.Flags().StringVar(&out, "out", "", "output report path (defaults to report.output_path)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = min(cpus, 4))")
	cmd.Flags().StringVar(&ocrFlag, "ocr", "", "override ocr.enabled: on|off")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

// writeReport picks the format from the configured value, letting the
// output path's extension win when they disagree.
func writeReport(cfg *config.Config, out string, records []validate.Record) error {
	w := report.NewWriter(nil)
	format := cfg.Report.Format
	switch strings.ToLower(filepath.Ext(out)) {
	case ".xlsx":
		format = "xlsx"
	case ".csv":
		format = "csv"
	}
	if format == "xlsx" {
		return w.WriteXLSX(out, records)
	}
	return w.WriteCSV(out, records)
}
