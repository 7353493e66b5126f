// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the generative backends.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"
)

// RetryBaseDelay is the default first backoff delay. Tests override this
// to avoid real sleeps.
var RetryBaseDelay = 1500 * time.Millisecond

const defaultMaxRetries = 3

// Policy bounds the retries of one request.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// disables retries; a negative value means the default (3).
	MaxRetries int

	// BaseDelay is the first backoff delay; it doubles on every retry.
	// Zero means RetryBaseDelay.
	BaseDelay time.Duration

	// OnRetry, when set, is called before each backoff wait.
	OnRetry func(attempt int, wait time.Duration, reason string)
}

// Retryable reports whether a status code is a transient failure: rate
// limiting or a gateway/server error.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoWithRetry executes an HTTP request and retries transient failures
// (429, 500, 502, 503, 504 and network timeouts) with exponential backoff:
// BaseDelay, 2*BaseDelay, 4*BaseDelay and so on.
//
// Request bodies are replayed through req.GetBody, which http.NewRequest
// sets for in-memory readers. Other status codes are returned at once. On
// each retry the previous response body is drained and closed. If the
// context is cancelled during a backoff wait the function returns
// ctx.Err(). After exhausting retries the last response (or error) is
// returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy Policy) (*http.Response, error) {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	base := policy.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replaying request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)

		var reason string
		switch {
		case err != nil && isTimeout(err) && ctx.Err() == nil:
			reason = err.Error()
		case err != nil:
			return nil, err
		case Retryable(resp.StatusCode):
			reason = resp.Status
		default:
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, err
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * base
		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, backoff, reason)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
