package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/invoxel/invoice-pipeline/internal/validate"
)

// ProgressFunc receives completion updates: once at start with (0, 0),
// once after each completed file, and once at the end. It may be invoked
// from a goroutine other than the caller's; UI consumers marshal it back
// as needed.
type ProgressFunc func(completed, total int, message string)

// RunLog records per-file job outcomes for the current run. Implementations
// must tolerate concurrent calls.
type RunLog interface {
	JobStarted(ctx context.Context, id uuid.UUID, filename string) error
	JobCompleted(ctx context.Context, id uuid.UUID, rec validate.Record) error
	JobFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// Batch distributes per-file pipeline work across a bounded worker pool
// and collects records in completion order. Only the collecting goroutine
// mutates the result slice.
type Batch struct {
	logger  *slog.Logger
	proc    *Processor
	runlog  RunLog // optional
	workers int
}

func NewBatch(logger *slog.Logger, proc *Processor, runlog RunLog, workers int) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = min(runtime.GOMAXPROCS(0), 4)
	}
	return &Batch{logger: logger, proc: proc, runlog: runlog, workers: workers}
}

type outcome struct {
	jobID uuid.UUID
	path  string
	rec   validate.Record
	err   error
}

// Run processes every file and returns one record per file that completed
// the pipeline. A file whose pipeline fails outright is logged and
// excluded from the result set; it never aborts the batch. Records arrive
// in completion order, not submission order.
func (b *Batch) Run(ctx context.Context, files []string, progress ProgressFunc) []validate.Record {
	if progress == nil {
		progress = func(int, int, string) {}
	}
	progress(0, 0, "Starting processing...")

	total := len(files)
	if total == 0 {
		b.logger.Warn("no invoice files to process")
		progress(0, 0, "No PDF invoices selected. Finished.")
		return nil
	}
	b.logger.Info("starting batch", "files", total, "workers", b.workers)

	jobs := make(chan string)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for path := range jobs {
				jobID := uuid.New()
				if b.runlog != nil {
					_ = b.runlog.JobStarted(ctx, jobID, filepath.Base(path))
				}
				rec, err := b.processSafe(ctx, path)
				results <- outcome{jobID: jobID, path: path, rec: rec, err: err}
			}
		}(i + 1)
	}

	go func() {
		for _, f := range files {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var records []validate.Record
	completed := 0
	for oc := range results {
		completed++
		if oc.err != nil {
			b.logger.Error("file pipeline failed, excluding from results",
				"file", filepath.Base(oc.path), "error", oc.err)
			if b.runlog != nil {
				_ = b.runlog.JobFailed(ctx, oc.jobID, oc.err.Error())
			}
			progress(completed, total, fmt.Sprintf("Failed %s", filepath.Base(oc.path)))
			continue
		}
		if b.runlog != nil {
			_ = b.runlog.JobCompleted(ctx, oc.jobID, oc.rec)
		}
		records = append(records, oc.rec)
		progress(completed, total, fmt.Sprintf("Processed %s", oc.rec.Filename))
	}

	progress(total, total, "All invoices processed.")
	b.logger.Info("batch complete", "files", total, "records", len(records))
	return records
}

// processSafe confines any escaping panic to the failing file.
func (b *Batch) processSafe(ctx context.Context, path string) (rec validate.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	rec = b.proc.ProcessFile(ctx, path)
	return rec, nil
}
