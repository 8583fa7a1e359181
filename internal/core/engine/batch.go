package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/metrics"
)

// BatchOption adjusts a single ExecuteBatch call.
type BatchOption func(*batchConfig)

type batchConfig struct {
	maxWorkers int
}

// WithMaxWorkers caps concurrency for one batch. Values below one use the
// orchestrator default.
func WithMaxWorkers(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

type batchJob struct {
	index int
	env   core.Envelope
}

// ExecuteBatch runs every envelope and returns results in input order:
// out[i] is the outcome of envelopes[i]. Items are independent; one failure
// never affects another slot.
//
// Cancelling ctx stops dispatch. Items already handed to a worker finish
// normally; the rest are reported as Canceled.
func (o *Orchestrator) ExecuteBatch(ctx context.Context, envelopes []core.Envelope, opts ...BatchOption) []core.Result {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := batchConfig{maxWorkers: o.maxWorkers}
	for _, opt := range opts {
		opt(&cfg)
	}

	results := make([]core.Result, len(envelopes))
	pending := make([]batchJob, 0, len(envelopes))
	for i, env := range envelopes {
		if failure := env.Validate(); failure != nil {
			results[i] = core.Failed(env.Shape, failure)
			continue
		}
		pending = append(pending, batchJob{index: i, env: env})
	}

	workers := min(cfg.maxWorkers, len(pending))
	metrics.RecordBatch(len(envelopes), workers)
	o.logger.Debug("Starting batch",
		zap.Int("items", len(envelopes)),
		zap.Int("valid", len(pending)),
		zap.Int("workers", workers),
	)

	claimed := make([]bool, len(envelopes))
	jobs := make(chan batchJob)
	detached := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for job := range jobs {
			results[job.index] = o.runItem(detached, job.env)
		}
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for _, job := range pending {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- job:
			claimed[job.index] = true
		}
	}
	close(jobs)
	wg.Wait()

	for _, job := range pending {
		if !claimed[job.index] {
			results[job.index] = core.Failed(job.env.Shape, core.NewFailure(core.KindCanceled, "batch canceled before item was dispatched", nil))
		}
	}

	for i := range results {
		results[i].Index = i
	}
	return results
}

// runItem isolates one batch item so a panic cannot take down the pool.
func (o *Orchestrator) runItem(ctx context.Context, env core.Envelope) (result core.Result) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPanic()
			result = core.Failed(env.Shape, core.NewFailure(core.KindRemoteUnavailable, fmt.Sprintf("internal error: %v", r), nil))
		}
	}()
	return o.Execute(ctx, env)
}
