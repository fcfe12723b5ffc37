package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Batch invoice extraction, validation and reporting",
		Long: `invoicectl ingests PDF invoices, extracts text (directly or via OCR),
parses invoice fields, validates them against business rules and emits a
consolidated report with optional email alerting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to config.yaml (defaults to ./config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")

	root.AddCommand(newProcessCmd())
	root.AddCommand(newWatchCmd())

	if err := root.Execute(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger installs a JSON slog handler as the process default.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// printError prints to stderr, falling back to stdout if stderr fails.
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}
