/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v84/github"
)

var (
	// ErrMissingToken is returned by New when no token is configured.
	ErrMissingToken = errors.New("github token is required")

	// ErrAuth covers bad credentials and permission failures. Never retried.
	ErrAuth = errors.New("github authentication failed")
	// ErrRateLimited covers primary and secondary rate limits.
	ErrRateLimited = errors.New("github rate limit exceeded")
	// ErrNotFound covers missing repositories, refs and paths. Never retried.
	ErrNotFound = errors.New("github resource not found")
	// ErrTransient covers 5xx responses, network failures and request timeouts.
	ErrTransient = errors.New("transient github failure")
	// ErrInvalidRequest covers other 4xx responses, such as malformed search queries.
	ErrInvalidRequest = errors.New("github rejected the request")
)

// Error is a classified GitHub failure.
type Error struct {
	Op   string
	Repo string
	// Kind is one of the sentinel errors above.
	Kind error
	// Wait is how long GitHub asked us to wait, if it said.
	Wait time.Duration
	Err  error
}

func (e *Error) Error() string {
	if e.Repo == "" {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Repo, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// RetryAfter exposes Wait to the retry package.
func (e *Error) RetryAfter() time.Duration {
	return e.Wait
}

// KindLabel returns a short label for err's kind, used in metrics and
// tool observations.
func KindLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// classify maps a go-github error to an *Error. parent is the caller's
// context: its cancellation is returned as is rather than treated as a
// transient failure.
func classify(parent context.Context, op, repo string, resp *github.Response, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}

	e := &Error{Op: op, Repo: repo, Err: err}

	var rle *github.RateLimitError
	var are *github.AbuseRateLimitError
	var ere *github.ErrorResponse
	switch {
	case errors.As(err, &rle):
		e.Kind = ErrRateLimited
		e.Wait = max(time.Until(rle.Rate.Reset.Time), 0)
	case errors.As(err, &are):
		e.Kind = ErrRateLimited
		e.Wait = are.GetRetryAfter()
	case errors.As(err, &ere) && ere.Response != nil:
		e.Wait, e.Kind = classifyStatus(ere.Response)
	case resp != nil && resp.Response != nil && resp.StatusCode >= 400:
		e.Wait, e.Kind = classifyStatus(resp.Response)
	default:
		// No HTTP status: the request never completed (timeout, connection
		// reset, DNS failure).
		e.Kind = ErrTransient
	}
	return e
}

// classifyStatus returns the wait GitHub asked for and the failure kind.
func classifyStatus(r *http.Response) (time.Duration, error) {
	switch code := r.StatusCode; {
	case code == http.StatusTooManyRequests:
		return retryAfter(r.Header), ErrRateLimited
	case code == http.StatusForbidden && r.Header.Get("X-RateLimit-Remaining") == "0":
		return resetWait(r.Header), ErrRateLimited
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return 0, ErrAuth
	case code == http.StatusNotFound, code == http.StatusUnprocessableEntity:
		// Search answers 422 when a repo: qualifier names a missing repository.
		return 0, ErrNotFound
	case code >= 500:
		return retryAfter(r.Header), ErrTransient
	default:
		return 0, ErrInvalidRequest
	}
}

func retryAfter(h http.Header) time.Duration {
	if s := h.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return resetWait(h)
}

func resetWait(h http.Header) time.Duration {
	if s := h.Get("X-RateLimit-Reset"); s != "" {
		if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
			return max(time.Until(time.Unix(unix, 0)), 0)
		}
	}
	return 0
}
