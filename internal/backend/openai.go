// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DefaultOpenAIBaseURL is the OpenAI API root.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI talks to any OpenAI-compatible chat completions API.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	http    transport
}

// NewOpenAI returns an OpenAI-compatible backend.
func NewOpenAI(cfg types.LLMConfig, log *zap.Logger) *OpenAI {
	base := strings.TrimRight(cfg.OpenAI.BaseURL, "/")
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	return &OpenAI{
		baseURL: base,
		apiKey:  cfg.OpenAI.APIKey,
		model:   cfg.OpenAI.Model,
		http:    newTransport(string(types.ProviderOpenAI), cfg.Timeout, cfg.UserAgent, cfg.MaxRetries, cfg.RetryBaseDelay, log),
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIRequest never sends a temperature; reasoning models accept only
// the default.
type openAIRequest struct {
	Model               string           `json:"model"`
	Messages            []openAIMessage  `json:"messages"`
	MaxCompletionTokens int              `json:"max_completion_tokens,omitempty"`
	ResponseFormat      map[string]any   `json:"response_format,omitempty"`
	Tools               []map[string]any `json:"tools,omitempty"`
	ToolChoice          map[string]any   `json:"tool_choice,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   *string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

var errEmptyChoices = errors.New("openai returned no choices")

// Name implements Backend.
func (o *OpenAI) Name() string { return string(types.ProviderOpenAI) }

// Complete asks for a JSON object in JSON mode.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	return o.chat(ctx, o.request(system, user, map[string]any{"type": "json_object"}))
}

// CompleteStructured escalates from a strict JSON schema to a forced tool
// call to plain JSON mode.
func (o *OpenAI) CompleteStructured(ctx context.Context, system, user string, schema Schema) (Completion, error) {
	return runCascade(ctx, o.http.log, []attempt{
		{StrategyJSONSchema, func(ctx context.Context) (string, error) {
			return o.chat(ctx, o.request(system, user, map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   schema.Name,
					"strict": true,
					"schema": schema.JSON,
				},
			}))
		}},
		{StrategyToolCall, func(ctx context.Context) (string, error) {
			req := o.request(system, user, nil)
			req.Tools = []map[string]any{{
				"type": "function",
				"function": map[string]any{
					"name":        schema.Name,
					"description": schema.Description,
					"parameters":  schema.JSON,
				},
			}}
			req.ToolChoice = map[string]any{
				"type":     "function",
				"function": map[string]any{"name": schema.Name},
			}
			return o.chat(ctx, req)
		}},
		{StrategyJSONMode, func(ctx context.Context) (string, error) {
			return o.Complete(ctx, system, user)
		}},
	})
}

// HealthCheck asks the configured model for a one-token answer, so a
// missing model or a rejected key fails the probe.
func (o *OpenAI) HealthCheck(ctx context.Context) bool {
	if o.model == "" {
		return false
	}
	_, err := o.chat(ctx, openAIRequest{
		Model:               o.model,
		Messages:            []openAIMessage{{Role: "user", Content: "ping"}},
		MaxCompletionTokens: 1,
	})
	if err != nil {
		o.http.log.Debug("health check failed", zap.String("backend", o.Name()), zap.Error(err))
	}
	return err == nil
}

func (o *OpenAI) request(system, user string, format map[string]any) openAIRequest {
	return openAIRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: format,
	}
}

func (o *OpenAI) headers() map[string]string {
	if o.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + o.apiKey}
}

// chat returns the message content, or the arguments of the first tool
// call when the model answered through a tool.
func (o *OpenAI) chat(ctx context.Context, req openAIRequest) (string, error) {
	var resp openAIResponse
	if err := o.http.do(ctx, http.MethodPost, o.baseURL+"/chat/completions", o.headers(), req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyChoices
	}
	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		return msg.ToolCalls[0].Function.Arguments, nil
	}
	if msg.Content == nil {
		return "", nil
	}
	return *msg.Content, nil
}
