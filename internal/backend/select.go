// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// ErrNoBackend is returned when no backend is configured.
var ErrNoBackend = errors.New("no LLM backend configured")

// Factory builds a backend for a provider.
type Factory func(p types.Provider, cfg types.LLMConfig, log *zap.Logger) (Backend, error)

// New builds the backend for provider p.
func New(p types.Provider, cfg types.LLMConfig, log *zap.Logger) (Backend, error) {
	switch p {
	case types.ProviderOpenAI:
		return NewOpenAI(cfg, log), nil
	case types.ProviderOllama:
		return NewOllama(cfg, log), nil
	case types.ProviderAnthropic:
		return NewAnthropic(cfg, log), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", p)
}

// Candidates returns the configured providers in selection order: the
// preferred one first, then openai, anthropic and ollama.
func Candidates(cfg types.LLMConfig) []types.Provider {
	order := []types.Provider{cfg.Provider, types.ProviderOpenAI, types.ProviderAnthropic, types.ProviderOllama}
	seen := make(map[types.Provider]bool)
	var out []types.Provider
	for _, p := range order {
		if p == "" || seen[p] || !configured(p, cfg) {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func configured(p types.Provider, cfg types.LLMConfig) bool {
	switch p {
	case types.ProviderOpenAI:
		return cfg.OpenAI.Configured(cfg.OpenAI.BaseURL == "" || cfg.OpenAI.BaseURL == DefaultOpenAIBaseURL)
	case types.ProviderOllama:
		return cfg.Ollama.Configured(false)
	case types.ProviderAnthropic:
		return cfg.Anthropic.Configured(true)
	}
	return false
}

// Select returns the first healthy configured backend. Every candidate but
// the last is probed; the last one is used as is because a probe may be a
// paid call and there is nothing left to fall back to.
func Select(ctx context.Context, cfg types.LLMConfig, factory Factory, log *zap.Logger) (Backend, error) {
	if factory == nil {
		factory = New
	}
	if log == nil {
		log = zap.NewNop()
	}

	candidates := Candidates(cfg)
	if len(candidates) == 0 {
		return nil, ErrNoBackend
	}
	for i, p := range candidates {
		b, err := factory(p, cfg, log)
		if err != nil {
			return nil, err
		}
		if i == len(candidates)-1 {
			log.Info("using backend", zap.String("backend", b.Name()), zap.Bool("probed", false))
			return b, nil
		}
		if b.HealthCheck(ctx) {
			log.Info("using backend", zap.String("backend", b.Name()), zap.Bool("probed", true))
			return b, nil
		}
		log.Warn("backend unavailable, falling back", zap.String("backend", b.Name()))
	}
	return nil, ErrNoBackend
}
