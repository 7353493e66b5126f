// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package heuristics

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DefaultBatchSize is the number of records loaded per batch.
const DefaultBatchSize = 200

// Store is the persistence the runner needs. Pending records are returned
// in resource_id order, strictly after the given id.
type Store interface {
	PendingHeuristics(ctx context.Context, statuses []types.Status, after string, limit int) ([]types.Publication, error)
	SaveHeuristics(ctx context.Context, results []types.HeuristicResult) error
}

// Options bound one run.
type Options struct {
	// BatchSize is the number of records per load/save cycle.
	BatchSize int

	// Limit caps the records processed in this run; 0 means no limit.
	Limit int

	// ReprocessErrors also selects records whose last attempt failed.
	ReprocessErrors bool
}

// Summary holds counts from a run.
type Summary struct {
	Processed int
	Failed    int
	NeedsLLM  int
}

// Total returns the number of records handled.
func (s Summary) Total() int {
	return s.Processed + s.Failed
}

// HasFailures reports whether any record ended in error.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Runner drives the heuristic stage over the store in batches.
type Runner struct {
	engine   *Engine
	store    Store
	registry *registry.Cache
	log      *zap.Logger
}

// NewRunner wires a runner. A nil logger disables logging.
func NewRunner(engine *Engine, store Store, reg *registry.Cache, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{engine: engine, store: store, registry: reg, log: log}
}

// Run processes pending records until none remain or the limit is reached.
// Record failures are counted, never returned; only store and registry
// errors abort the run.
func (r *Runner) Run(ctx context.Context, opts Options, w io.Writer) (Summary, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	statuses := []types.Status{types.StatusNotProcessed}
	if opts.ReprocessErrors {
		statuses = append(statuses, types.StatusError)
	}

	log := r.log.With(zap.String("run_id", uuid.NewString()), zap.String("stage", "heuristics"))

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
	for {
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

		pubs, err := r.store.PendingHeuristics(ctx, statuses, after, n)
		if err != nil {
			return summary, fmt.Errorf("loading pending records: %w", err)
		}
		if len(pubs) == 0 {
			break
		}

		results := make([]types.HeuristicResult, len(pubs))
		for i, pub := range pubs {
			res := r.engine.Process(pub, reg)
			results[i] = res
			if res.Status == types.StatusProcessed {
				summary.Processed++
			} else {
				summary.Failed++
				log.Warn("record failed", zap.String("resource_id", res.ResourceID), zap.String("error", res.Flags.Error))
			}
			if res.NeedsLLM {
				summary.NeedsLLM++
			}
		}

		if err := r.store.SaveHeuristics(ctx, results); err != nil {
			return summary, fmt.Errorf("saving heuristic results: %w", err)
		}
		after = pubs[len(pubs)-1].ResourceID

		rate := float64(summary.Total()) / max(time.Since(started).Seconds(), 1)
		fmt.Fprintf(w, "processed %d | needs llm: %d | errors: %d | %.1f rec/s\n",
			summary.Total(), summary.NeedsLLM, summary.Failed, rate)
		log.Debug("batch saved", zap.Int("size", len(pubs)), zap.String("last_id", after))
	}

	log.Info("heuristics finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("needs_llm", summary.NeedsLLM))
	return summary, nil
}
