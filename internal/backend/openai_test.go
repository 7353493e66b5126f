// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

var testSchema = Schema{
	Name:        "internal_authors",
	Description: "internal authors",
	JSON:        map[string]any{"type": "object"},
}

type recordedRequest struct {
	Path string
	Auth string
	Body map[string]any
}

// fakeOpenAI answers each chat request with the next handler in line.
func fakeOpenAI(t *testing.T, handlers ...func(w http.ResponseWriter)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		rec := recordedRequest{Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if r.Body != nil && r.Method == http.MethodPost {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&rec.Body))
		}
		reqs = append(reqs, rec)
		i := len(reqs) - 1
		if i >= len(handlers) {
			i = len(handlers) - 1
		}
		handlers[i](w)
	}))
	t.Cleanup(ts.Close)
	return ts, &reqs
}

func content(text string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": text}}},
		})
	}
}

func toolCall(args string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{
				"content": nil,
				"tool_calls": []any{map[string]any{
					"function": map[string]any{"name": "internal_authors", "arguments": args},
				}},
			}}},
		})
	}
}

func status(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
		w.Write([]byte(`{"error":{"message":"nope"}}`))
	}
}

func openAIConfig(url string) types.LLMConfig {
	return types.LLMConfig{
		OpenAI:     types.AIConfig{BaseURL: url, Model: "gpt-test", APIKey: "sk-test"},
		MaxRetries: 2,
	}
}

func TestOpenAIStrictSchemaFirst(t *testing.T) {
	ts, reqs := fakeOpenAI(t, content(`{"internal_authors":[]}`))
	o := NewOpenAI(openAIConfig(ts.URL), zaptest.NewLogger(t))

	got, err := o.CompleteStructured(context.Background(), "sys", "user", testSchema)
	require.NoError(t, err)
	assert.Equal(t, StrategyJSONSchema, got.Strategy)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "/chat/completions", req.Path)
	assert.Equal(t, "Bearer sk-test", req.Auth)
	assert.Equal(t, "gpt-test", req.Body["model"])
	format := req.Body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, true, format["json_schema"].(map[string]any)["strict"])
	msgs := req.Body["messages"].([]any)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.NotContains(t, req.Body, "temperature")
}

func TestOpenAIEscalatesToToolCall(t *testing.T) {
	ts, reqs := fakeOpenAI(t, status(http.StatusBadRequest), toolCall(`{"internal_authors":[{"name":"A"}]}`))
	o := NewOpenAI(openAIConfig(ts.URL), zaptest.NewLogger(t))

	got, err := o.CompleteStructured(context.Background(), "sys", "user", testSchema)
	require.NoError(t, err)
	assert.Equal(t, StrategyToolCall, got.Strategy)
	assert.Equal(t, `{"internal_authors":[{"name":"A"}]}`, got.Text)

	require.Len(t, *reqs, 2)
	body := (*reqs)[1].Body
	assert.NotContains(t, body, "response_format")
	choice := body["tool_choice"].(map[string]any)
	assert.Equal(t, "internal_authors", choice["function"].(map[string]any)["name"])
}

func TestOpenAIEscalatesToJSONMode(t *testing.T) {
	ts, reqs := fakeOpenAI(t,
		status(http.StatusBadRequest),
		status(http.StatusUnprocessableEntity),
		content("```json\n{\"internal_authors\":[]}\n```"),
	)
	o := NewOpenAI(openAIConfig(ts.URL), zaptest.NewLogger(t))

	got, err := o.CompleteStructured(context.Background(), "sys", "user", testSchema)
	require.NoError(t, err)
	assert.Equal(t, StrategyJSONMode, got.Strategy)
	require.Len(t, *reqs, 3)
	assert.Equal(t, "json_object", (*reqs)[2].Body["response_format"].(map[string]any)["type"])
}

func TestOpenAIAuthFailsFast(t *testing.T) {
	ts, reqs := fakeOpenAI(t, status(http.StatusUnauthorized))
	o := NewOpenAI(openAIConfig(ts.URL), zaptest.NewLogger(t))

	_, err := o.CompleteStructured(context.Background(), "sys", "user", testSchema)
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.Len(t, *reqs, 1)
}

func TestOpenAIRetriesTransientThenFails(t *testing.T) {
	ts, reqs := fakeOpenAI(t, status(http.StatusServiceUnavailable))
	o := NewOpenAI(openAIConfig(ts.URL), zaptest.NewLogger(t))

	_, err := o.CompleteStructured(context.Background(), "sys", "user", testSchema)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	// 1 attempt + 2 retries, no further strategies.
	assert.Len(t, *reqs, 3)
}

func TestOpenAIHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter)
		want    bool
	}{
		{name: "model answers", handler: content("p"), want: true},
		{name: "empty answer still counts", handler: content(""), want: true},
		{name: "model not found", handler: status(http.StatusNotFound), want: false},
		{name: "bad key", handler: status(http.StatusUnauthorized), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, reqs := fakeOpenAI(t, tt.handler)
			o := NewOpenAI(openAIConfig(ts.URL), zaptest.NewLogger(t))

			assert.Equal(t, tt.want, o.HealthCheck(context.Background()))
			require.Len(t, *reqs, 1)
			req := (*reqs)[0]
			assert.Equal(t, "/chat/completions", req.Path)
			assert.Equal(t, "gpt-test", req.Body["model"])
			assert.Equal(t, float64(1), req.Body["max_completion_tokens"])
			assert.NotContains(t, req.Body, "response_format")
		})
	}
}

func TestOpenAIHealthCheckWithoutModel(t *testing.T) {
	ts, reqs := fakeOpenAI(t, content("p"))
	o := NewOpenAI(types.LLMConfig{OpenAI: types.AIConfig{BaseURL: ts.URL}}, nil)
	assert.False(t, o.HealthCheck(context.Background()))
	assert.Empty(t, *reqs)
}

func TestOpenAIZeroRetriesSendsOnce(t *testing.T) {
	ts, reqs := fakeOpenAI(t, status(http.StatusServiceUnavailable))
	cfg := openAIConfig(ts.URL)
	cfg.MaxRetries = 0
	o := NewOpenAI(cfg, zaptest.NewLogger(t))

	_, err := o.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Len(t, *reqs, 1)
}
