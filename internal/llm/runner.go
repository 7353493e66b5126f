// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DefaultBatchSize is the number of records loaded per batch.
const DefaultBatchSize = 20

// Store is the persistence the runner needs. Pending records need the LLM
// stage and are returned in resource_id order, strictly after the given id.
type Store interface {
	PendingLLM(ctx context.Context, includeFailed bool, after string, limit int) ([]types.LLMInput, error)
	SaveLLM(ctx context.Context, outcomes []types.LLMOutcome) error
}

// Options bound one run.
type Options struct {
	// BatchSize is the number of records per load/save cycle.
	BatchSize int

	// Limit caps the records processed in this run; 0 means no limit.
	Limit int

	// ReprocessErrors also selects records whose last attempt failed.
	ReprocessErrors bool

	// Workers is the number of records processed concurrently.
	Workers int

	// BatchPause is waited between batches to respect backend quotas.
	BatchPause time.Duration
}

// Summary holds counts from a run.
type Summary struct {
	Processed int
	Failed    int
	Invalid   int
	Rejected  int
}

// Total returns the number of records handled.
func (s Summary) Total() int {
	return s.Processed + s.Failed + s.Invalid
}

// HasFailures reports whether any record failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0 || s.Invalid > 0
}

// Runner drives the LLM stage over the store in batches.
type Runner struct {
	processor *Processor
	store     Store
	registry  *registry.Cache
	log       *zap.Logger
}

// NewRunner wires a runner. A nil logger disables logging.
func NewRunner(p *Processor, store Store, reg *registry.Cache, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{processor: p, store: store, registry: reg, log: log}
}

// Run processes pending records until none remain or the limit is reached.
// Record failures are counted, never returned; only store and registry
// errors abort the run.
func (r *Runner) Run(ctx context.Context, opts Options, w io.Writer) (Summary, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	log := r.log.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("stage", "llm"),
		zap.String("backend", r.processor.backend.Name()))

	reg, err := r.registry.Get(ctx)
	if err != nil {
		return Summary{}, err
	}
	log.Info("registry loaded", zap.Int("authors", len(reg)))

	var (
		summary Summary
		after   string
		started = time.Now()
	)
	for first := true; ; first = false {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		n := batchSize
		if opts.Limit > 0 {
			if left := opts.Limit - summary.Total(); left < n {
				n = left
			}
		}
		if n <= 0 {
			break
		}

		inputs, err := r.store.PendingLLM(ctx, opts.ReprocessErrors, after, n)
		if err != nil {
			return summary, fmt.Errorf("loading pending records: %w", err)
		}
		if len(inputs) == 0 {
			break
		}

		if !first && opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(opts.BatchPause):
			}
		}

		outcomes := r.processBatch(ctx, inputs, reg, workers)
		for _, o := range outcomes {
			switch o.Status {
			case types.StatusProcessed:
				summary.Processed++
				summary.Rejected += len(o.Payload.RejectedNames)
			case types.StatusValidationError:
				summary.Invalid++
				log.Warn("invalid model output", zap.String("resource_id", o.ResourceID), zap.String("error", o.Payload.Error))
			default:
				summary.Failed++
				log.Warn("record failed", zap.String("resource_id", o.ResourceID), zap.String("error", o.Payload.Error))
			}
		}

		if err := r.store.SaveLLM(ctx, outcomes); err != nil {
			return summary, fmt.Errorf("saving llm results: %w", err)
		}
		after = inputs[len(inputs)-1].ResourceID

		rate := float64(summary.Total()) / max(time.Since(started).Seconds(), 1)
		fmt.Fprintf(w, "processed %d | invalid: %d | errors: %d | %.1f rec/s\n",
			summary.Total(), summary.Invalid, summary.Failed, rate)
	}

	log.Info("llm stage finished",
		zap.Int("processed", summary.Processed),
		zap.Int("invalid", summary.Invalid),
		zap.Int("failed", summary.Failed),
		zap.Int("rejected_names", summary.Rejected))
	return summary, nil
}

// processBatch runs up to workers records at once. Outcomes keep input
// order. Record failures live in the outcomes, so the group never errors.
func (r *Runner) processBatch(ctx context.Context, inputs []types.LLMInput, reg []registry.Author, workers int) []types.LLMOutcome {
	outcomes := make([]types.LLMOutcome, len(inputs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			outcomes[i] = r.processor.Process(ctx, in, reg)
			return nil
		})
	}
	g.Wait()
	return outcomes
}
