// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

const anthropicMaxTokens = 2048

// messager is the slice of the SDK client the backend uses, so tests can
// substitute it.
type messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic calls the Messages API through the official SDK, which handles
// its own retries.
type Anthropic struct {
	messages messager
	model    string
	log      *zap.Logger
}

// NewAnthropic returns an Anthropic backend.
func NewAnthropic(cfg types.LLMConfig, log *zap.Logger) *Anthropic {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.Anthropic.APIKey)}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := anthropic.NewClient(opts...)

	model := cfg.Anthropic.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{messages: &client.Messages, model: model, log: log}
}

// Name implements Backend.
func (a *Anthropic) Name() string { return string(types.ProviderAnthropic) }

// Complete sends one exchange and concatenates the text blocks.
func (a *Anthropic) Complete(ctx context.Context, system, user string) (string, error) {
	return a.send(ctx, system, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
	}, anthropicMaxTokens)
}

// CompleteStructured first prefills the answer with "{" so the model
// continues a JSON object, then falls back to a plain exchange.
func (a *Anthropic) CompleteStructured(ctx context.Context, system, user string, _ Schema) (Completion, error) {
	return runCascade(ctx, a.log, []attempt{
		{StrategyPrefill, func(ctx context.Context) (string, error) {
			text, err := a.send(ctx, system, []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
				anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")),
			}, anthropicMaxTokens)
			if err != nil {
				return "", err
			}
			return "{" + text, nil
		}},
		{StrategyPlain, func(ctx context.Context) (string, error) {
			return a.Complete(ctx, system, user)
		}},
	})
}

// HealthCheck sends a one-token request.
func (a *Anthropic) HealthCheck(ctx context.Context) bool {
	_, err := a.send(ctx, "", []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
	}, 1)
	if err != nil {
		a.log.Debug("health check failed", zap.String("backend", a.Name()), zap.Error(err))
	}
	return err == nil
}

func (a *Anthropic) send(ctx context.Context, system string, msgs []anthropic.MessageParam, maxTokens int64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   maxTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(0),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := a.messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Backend: a.Name(), StatusCode: apiErr.StatusCode, Body: apiErr.RawJSON()}
		}
		return "", err
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
