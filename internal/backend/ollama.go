// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DefaultOllamaBaseURL is the local Ollama server.
const DefaultOllamaBaseURL = "http://localhost:11434"

// Ollama talks to an Ollama server's chat API.
type Ollama struct {
	baseURL string
	model   string
	http    transport
}

// NewOllama returns an Ollama backend.
func NewOllama(cfg types.LLMConfig, log *zap.Logger) *Ollama {
	base := strings.TrimRight(cfg.Ollama.BaseURL, "/")
	if base == "" {
		base = DefaultOllamaBaseURL
	}
	return &Ollama{
		baseURL: base,
		model:   cfg.Ollama.Model,
		http:    newTransport(string(types.ProviderOllama), cfg.Timeout, cfg.UserAgent, cfg.MaxRetries, cfg.RetryBaseDelay, log),
	}
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Name implements Backend.
func (o *Ollama) Name() string { return string(types.ProviderOllama) }

// Complete asks for JSON with format "json".
func (o *Ollama) Complete(ctx context.Context, system, user string) (string, error) {
	return o.chat(ctx, system, user, "json")
}

// CompleteStructured passes the schema as the format first and falls back
// to format "json" for servers that predate structured outputs.
func (o *Ollama) CompleteStructured(ctx context.Context, system, user string, schema Schema) (Completion, error) {
	return runCascade(ctx, o.http.log, []attempt{
		{StrategyJSONSchema, func(ctx context.Context) (string, error) {
			return o.chat(ctx, system, user, schema.JSON)
		}},
		{StrategyJSONMode, func(ctx context.Context) (string, error) {
			return o.Complete(ctx, system, user)
		}},
	})
}

// HealthCheck asks the configured model for a single token. A model that
// is not pulled answers 404 and fails the probe.
func (o *Ollama) HealthCheck(ctx context.Context) bool {
	if o.model == "" {
		return false
	}
	req := ollamaRequest{
		Model:    o.model,
		Messages: []openAIMessage{{Role: "user", Content: "ping"}},
		Options:  map[string]any{"num_predict": 1},
	}
	err := o.http.do(ctx, http.MethodPost, o.baseURL+"/api/chat", nil, req, &ollamaResponse{})
	if err != nil {
		o.http.log.Debug("health check failed", zap.String("backend", o.Name()), zap.Error(err))
	}
	return err == nil
}

func (o *Ollama) chat(ctx context.Context, system, user string, format any) (string, error) {
	req := ollamaRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Format:  format,
		Options: map[string]any{"temperature": 0},
	}
	var resp ollamaResponse
	if err := o.http.do(ctx, http.MethodPost, o.baseURL+"/api/chat", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
