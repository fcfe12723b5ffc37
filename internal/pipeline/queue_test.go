package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/invoxel/invoice-pipeline/internal/extract"
	"github.com/invoxel/invoice-pipeline/internal/validate"
)

func TestQueueProcessesEnqueuedJobs(t *testing.T) {
	proc := buildProcessor(sourceFunc(func(context.Context, string) extract.Result {
		return directResult(goodInvoiceText)
	}))

	var mu sync.Mutex
	var got []validate.Record
	q := NewQueue(proc, testLogger(), func(rec validate.Record) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, rec)
	}, WithWorkers(2), WithQueueSize(8))

	for i := 0; i < 5; i++ {
		err := q.Enqueue(context.Background(), Job{
			Path:        fmt.Sprintf("/watch/inv-%d.pdf", i),
			SubmittedAt: time.Now(),
			TraceID:     uuid.New(),
		})
		assert.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 5)
}

func TestQueueConfinesPanicToJob(t *testing.T) {
	proc := buildProcessor(sourceFunc(func(_ context.Context, path string) extract.Result {
		if strings.Contains(path, "poison") {
			panic("boom")
		}
		return directResult(goodInvoiceText)
	}))

	var mu sync.Mutex
	var got []validate.Record
	q := NewQueue(proc, testLogger(), func(rec validate.Record) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, rec)
	}, WithWorkers(1))

	_ = q.Enqueue(context.Background(), Job{Path: "/watch/poison.pdf", TraceID: uuid.New()})
	_ = q.Enqueue(context.Background(), Job{Path: "/watch/good.pdf", TraceID: uuid.New()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 1)
	assert.Equal(t, "good.pdf", got[0].Filename)
}

func TestQueueEnqueueAfterShutdownIsNoop(t *testing.T) {
	proc := buildProcessor(sourceFunc(func(context.Context, string) extract.Result {
		return directResult(goodInvoiceText)
	}))
	var count int
	var mu sync.Mutex
	q := NewQueue(proc, testLogger(), func(validate.Record) {
		mu.Lock()
		defer mu.Unlock()
		count++
	}, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.NoError(t, q.Enqueue(context.Background(), Job{Path: "/watch/late.pdf"}))
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}
