package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/invoxel/invoice-pipeline/internal/validate"
)

// Job is one file queued for processing in watch mode.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     uuid.UUID
}

// Queue feeds dropped files through the processor with a fixed worker
// pool. Completed records are handed to the onRecord callback one at a
// time from the worker that produced them.
type Queue struct {
	proc     *Processor
	logger   *slog.Logger
	onRecord func(validate.Record)
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*Queue)

func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(proc *Processor, logger *slog.Logger, onRecord func(validate.Record), opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if onRecord == nil {
		onRecord = func(validate.Record) {}
	}
	q := &Queue{
		proc:     proc,
		logger:   logger,
		onRecord: onRecord,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					rec, err := func() (rec validate.Record, err error) {
						defer func() {
							if r := recover(); r != nil {
								err = fmt.Errorf("pipeline panic: %v", r)
							}
						}()
						return q.proc.ProcessFile(ctx, job.Path), nil
					}()
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
						continue
					}
					q.onRecord(rec)
					q.logger.Info("processed file", "worker_id", workerID, "path", job.Path, "status", rec.Status, "trace_id", job.TraceID)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue submits a file for processing; blocks when the queue is full.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued file for processing", "path", job.Path, "trace_id", job.TraceID)
	default:
		q.logger.Warn("queue full, applying backpressure", "path", job.Path)
		q.ch <- job
	}
	return nil
}

// Shutdown stops accepting work and waits for in-flight jobs, bounded by
// the context.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
