// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
)

// CompleteWithRetry calls c.Complete up to attempts times, returning the
// first successful response. It exists for call sites that must degrade to a
// simpler output rather than abort when the completion service misbehaves;
// callers treat the returned error as "give up and degrade".
func CompleteWithRetry(ctx context.Context, c Completer, prompt string, attempts int) (string, error) {
	if attempts <= 0 {
		attempts = 3
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := c.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", attempts, lastErr)
}
