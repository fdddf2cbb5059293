/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// ErrHintTooLong is returned (wrapped) when a server asks us to wait longer
// than the configured MaxBackoff. Retrying earlier would only fail again.
var ErrHintTooLong = errors.New("server retry hint exceeds max backoff")

// RetryConfig configures retry behavior for API calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	// 0 means do not retry at all.
	MaxRetries int
	// BaseBackoff is the initial backoff duration.
	BaseBackoff time.Duration
	// MaxBackoff caps both the computed backoff and any server hint we honor.
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to backoff.
	MaxJitter time.Duration
}

// Validate checks that the retry configuration has valid values.
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// DefaultRetryConfig returns a retry configuration suitable for LLM quota and
// rate limit errors.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  5,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  60 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// GitHubRetryConfig returns the bounded configuration used for GitHub REST
// calls. Search is limited to ~30 requests/minute, so the cap sits just above
// a minute window.
func GitHubRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  65 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// Hinter is implemented by errors that carry a provider supplied wait
// (Retry-After header, rate limit reset time).
type Hinter interface {
	RetryAfter() time.Duration
}

// hint extracts the provider wait from err, if any.
func hint(err error) time.Duration {
	var h Hinter
	if errors.As(err, &h) {
		return h.RetryAfter()
	}
	return 0
}

// Delay returns how long to wait before attempt+1, given the error that
// ended attempt. The exponential backoff is BaseBackoff * 2^attempt capped at
// MaxBackoff, plus jitter; a larger provider hint wins.
func (c RetryConfig) Delay(attempt int, err error) (time.Duration, error) {
	wait := hint(err)
	if wait > c.MaxBackoff {
		return 0, fmt.Errorf("%w: asked to wait %v (max %v)", ErrHintTooLong, wait, c.MaxBackoff)
	}

	backoff := min(c.BaseBackoff<<attempt, c.MaxBackoff)
	if c.MaxJitter > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(c.MaxJitter))); err == nil {
			backoff += time.Duration(n.Int64())
		}
	}
	return max(backoff, wait), nil
}

// RetryWithBackoff executes fn, retrying errors classified as retryable by
// isRetryable with exponential backoff. Provider hints exposed through Hinter
// are honored.
func RetryWithBackoff[T any](ctx context.Context, cfg RetryConfig, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryable(lastErr) {
			return result, lastErr
		}

		if attempt >= cfg.MaxRetries {
			break
		}

		wait, err := cfg.Delay(attempt, lastErr)
		if err != nil {
			return result, fmt.Errorf("%s: %w: %w", operation, err, lastErr)
		}

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", lastErr.Error()).
			Warn("Retryable error, backing off")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}
