package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/invoxel/invoice-pipeline/internal/config"
	"github.com/invoxel/invoice-pipeline/internal/extract"
	"github.com/invoxel/invoice-pipeline/internal/ingest"
	"github.com/invoxel/invoice-pipeline/internal/notify"
	"github.com/invoxel/invoice-pipeline/internal/parse"
	"github.com/invoxel/invoice-pipeline/internal/pipeline"
	"github.com/invoxel/invoice-pipeline/internal/validate"
)

func newWatchCmd() *cobra.Command {
	var (
		dir         string
		out         string
		workers     int
		initialScan bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a drop folder and process invoices as they arrive",
		Long: `Watches a directory for new PDF invoices and runs each one through the
pipeline as it lands. On shutdown (SIGINT/SIGTERM) the accumulated records
are written to the report and the alert threshold is evaluated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			level, _ := cmd.Flags().GetString("log-level")
			logger := setupLogger(level)

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Report.OutputPath
			}

			patterns, err := parse.CompileSet(cfg.Patterns)
			if err != nil {
				return fmt.Errorf("invalid regex_patterns config: %w", err)
			}

			proc := pipeline.NewProcessor(
				logger,
				extract.NewExtractor(cfg.OCR, logger),
				parse.NewParser(patterns, logger),
				validate.NewValidator(logger),
			)

			// Records accumulate across the whole watch session; only the
			// collecting closure below touches the slice.
			var (
				mu      sync.Mutex
				records []validate.Record
			)
			queueWorkers := workers
			if queueWorkers <= 0 {
				queueWorkers = cfg.Pipeline.Workers
			}
			var opts []pipeline.QueueOption
			if queueWorkers > 0 {
				opts = append(opts, pipeline.WithWorkers(queueWorkers))
			}
			queue := pipeline.NewQueue(proc, logger, func(rec validate.Record) {
				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			}, opts...)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       []string{dir},
				InitialScan: initialScan,
				Debounce:    500 * time.Millisecond,
			}, logger)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}

			logger.Info("watching for invoices", "dir", dir)
			for {
				select {
				case <-ctx.Done():
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					queue.Shutdown(shutdownCtx)
					cancel()

					mu.Lock()
					final := make([]validate.Record, len(records))
					copy(final, records)
					mu.Unlock()

					if err := writeReport(cfg, out, final); err != nil {
						logger.Error("report generation failed", "error", err)
					}
					notifier := notify.NewNotifier(cfg.Email, logger)
					if err := notifier.MaybeAlert(final); err != nil {
						logger.Error("alert notification failed", "error", err)
					}
					logger.Info("watch session complete", "records", len(final), "output", out)
					return nil
				case path, ok := <-events:
					if !ok {
						events = nil
						continue
					}
					_ = queue.Enqueue(ctx, pipeline.Job{
						Path:        path,
						SubmittedAt: time.Now(),
						TraceID:     uuid.New(),
					})
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					if err != nil {
						logger.Error("watcher error", "error", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory to watch for PDF invoices (required)")
	cmd.Flags().StringVar(&out, "out", "", "output report path written on shutdown")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", true, "process files already present at startup")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
