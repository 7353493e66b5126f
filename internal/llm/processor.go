// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the generative fallback of the pipeline. For each record
// the heuristic stage could not fully resolve it builds a prompt bounded
// to a candidate whitelist, asks a backend for JSON, validates the answer
// and keeps only names present in the registry.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/backend"
	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// rawAuditLimit bounds the model output kept for failed validations.
const rawAuditLimit = 1500

// Processor runs the LLM stage for single records. It is safe for
// concurrent use when its backend is.
type Processor struct {
	backend       backend.Backend
	maxCandidates int
	system        string
	log           *zap.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewProcessor returns a processor. maxCandidates <= 0 uses
// DefaultMaxCandidates.
func NewProcessor(b backend.Backend, maxCandidates int, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		backend:       b,
		maxCandidates: maxCandidates,
		system:        SystemPrompt(),
		log:           log,
		now:           time.Now,
	}
}

// Process resolves one record. The outcome status is processed,
// validation_error (the model broke the contract) or error (the backend
// failed or something unexpected happened). Prior attribution is kept and
// extended, never replaced.
func (p *Processor) Process(ctx context.Context, in types.LLMInput, reg []registry.Author) (out types.LLMOutcome) {
	out = types.LLMOutcome{
		ResourceID:  in.ResourceID,
		Status:      types.StatusError,
		ProcessedAt: p.now().UTC(),
		Payload:     types.LLMPayload{Backend: p.backend.Name()},
	}

	defer func() {
		if r := recover(); r != nil {
			out.Status = types.StatusError
			out.Attribution = types.Attribution{}
			out.Payload = types.LLMPayload{Backend: p.backend.Name(), Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	names := in.Flags.UnmatchedInternalAuthors
	if len(names) == 0 {
		names = in.Contributors
	}
	allowed := SelectCandidates(reg, names, p.maxCandidates)

	user, err := BuildUserMessage(in, allowed)
	if err != nil {
		out.Payload.Error = err.Error()
		return out
	}

	comp, err := backend.Generate(ctx, p.backend, p.system, user, OutputSchema(allowed))
	if err != nil {
		out.Payload.Error = err.Error()
		return out
	}
	out.Payload.Strategy = string(comp.Strategy)

	entries, err := ParseOutput(comp.Text)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			out.Status = types.StatusValidationError
			out.Payload.Raw = truncate(comp.Text, rawAuditLimit)
		}
		out.Payload.Error = err.Error()
		return out
	}

	kept, rejected := Sanitize(entries, reg)
	if len(rejected) > 0 {
		p.log.Warn("dropped names outside the registry",
			zap.String("resource_id", in.ResourceID),
			zap.Strings("names", rejected))
	}

	out.Status = types.StatusProcessed
	out.Payload.InternalAuthors = kept
	out.Payload.RejectedNames = rejected
	out.Attribution = in.Prior.Merge(Attribute(kept))
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
