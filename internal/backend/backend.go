// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend abstracts the generative model behind the LLM stage. Every
// backend offers plain chat completion and a health probe; backends that
// support constrained generation also implement StructuredCompleter and
// escalate through an ordered list of strategies.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Strategy names one way of asking a backend for JSON.
type Strategy string

const (
	StrategyJSONSchema Strategy = "json_schema"
	StrategyToolCall   Strategy = "tool_call"
	StrategyJSONMode   Strategy = "json_mode"
	StrategyPrefill    Strategy = "prefill"
	StrategyPlain      Strategy = "plain"
)

// Backend is a chat-style generative model.
type Backend interface {
	// Name identifies the backend in logs and stored payloads.
	Name() string

	// Complete returns the raw text answer to one system/user exchange.
	Complete(ctx context.Context, system, user string) (string, error)

	// HealthCheck reports whether the backend can answer right now.
	HealthCheck(ctx context.Context) bool
}

// Schema is a JSON Schema handed to constrained generation.
type Schema struct {
	Name        string
	Description string
	JSON        map[string]any
}

// Completion is a raw answer and the strategy that produced it.
type Completion struct {
	Text     string
	Strategy Strategy
}

// StructuredCompleter is implemented by backends able to constrain output
// to a schema.
type StructuredCompleter interface {
	CompleteStructured(ctx context.Context, system, user string, schema Schema) (Completion, error)
}

// Generate asks b for JSON matching schema, using constrained generation
// when b supports it and plain completion otherwise.
func Generate(ctx context.Context, b Backend, system, user string, schema Schema) (Completion, error) {
	if sc, ok := b.(StructuredCompleter); ok {
		return sc.CompleteStructured(ctx, system, user, schema)
	}
	text, err := b.Complete(ctx, system, user)
	if err != nil {
		return Completion{}, err
	}
	return Completion{Text: text, Strategy: StrategyPlain}, nil
}

// StatusError is a non-2xx answer from a backend API.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s returned %d: %s", e.Backend, e.StatusCode, body)
}

// IsRetryable reports whether err is a transient backend failure (rate
// limiting or a server error).
func IsRetryable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
}

// IsPermanent reports whether err is a client error other than rate
// limiting. Such requests are never retried.
func IsPermanent(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
}

// IsAuth reports whether err is an authentication or authorization failure.
func IsAuth(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
}
