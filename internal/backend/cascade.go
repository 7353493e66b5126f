// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// attempt is one strategy of a cascade.
type attempt struct {
	strategy Strategy
	run      func(ctx context.Context) (string, error)
}

// errNoAttempts is returned by an empty cascade.
var errNoAttempts = errors.New("no strategies configured")

// runCascade tries attempts in order and returns the first answer holding a
// valid JSON object. A strategy rejected by the API with a client error
// falls through to the next one; authentication failures and transient
// failures that outlived their retries end the cascade. When every strategy
// answered without JSON the last answer is returned so the caller can
// report the contract violation.
func runCascade(ctx context.Context, log *zap.Logger, attempts []attempt) (Completion, error) {
	var (
		lastText *Completion
		lastErr  error = errNoAttempts
	)
	for _, a := range attempts {
		text, err := a.run(ctx)
		if err != nil {
			if IsAuth(err) || !IsPermanent(err) {
				return Completion{}, fmt.Errorf("strategy %s: %w", a.strategy, err)
			}
			log.Debug("strategy rejected", zap.String("strategy", string(a.strategy)), zap.Error(err))
			lastErr = fmt.Errorf("strategy %s: %w", a.strategy, err)
			continue
		}
		if _, ok := ExtractJSON(text); ok {
			return Completion{Text: text, Strategy: a.strategy}, nil
		}
		log.Debug("strategy answered without JSON", zap.String("strategy", string(a.strategy)))
		lastText = &Completion{Text: text, Strategy: a.strategy}
	}
	if lastText != nil {
		return *lastText, nil
	}
	return Completion{}, lastErr
}
