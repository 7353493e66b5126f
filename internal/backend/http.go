// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/httputil"
)

// transport is the HTTP plumbing shared by the JSON-over-HTTP backends.
type transport struct {
	name       string
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	log        *zap.Logger
}

func newTransport(name string, timeout time.Duration, userAgent string, maxRetries int, baseDelay time.Duration, log *zap.Logger) transport {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return transport{
		name:       name,
		client:     &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		log:        log,
	}
}

// do sends method url with an optional JSON body and decodes a 2xx JSON
// answer into out. Non-2xx answers become *StatusError.
func (t transport) do(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetry(ctx, t.client, req, httputil.Policy{
		MaxRetries: t.maxRetries,
		BaseDelay:  t.baseDelay,
		OnRetry: func(attempt int, wait time.Duration, reason string) {
			t.log.Warn("retrying request",
				zap.String("backend", t.name),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.String("reason", reason))
		},
	})
	if err != nil {
		return fmt.Errorf("calling %s: %w", t.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Backend: t.name, StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", t.name, err)
	}
	return nil
}
