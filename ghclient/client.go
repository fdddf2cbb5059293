/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"

	"chainguard.dev/repoqa/agents/executor/retry"
)

// DefaultRequestTimeout bounds each HTTP attempt.
const DefaultRequestTimeout = 15 * time.Second

// Client is safe for concurrent use.
type Client struct {
	gh      *github.Client
	timeout time.Duration
	retry   retry.RetryConfig
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a different API root, such as a GitHub
// Enterprise server or a test fake.
func WithBaseURL(base string) Option {
	return func(c *Client) error {
		if base == "" {
			return nil
		}
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parse base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.gh.BaseURL = u
		return nil
	}
}

// WithRequestTimeout bounds each individual HTTP attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithRetryConfig overrides the retry policy for rate limited and transient failures.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(c *Client) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
		c.retry = cfg
		return nil
	}
}

// New creates a client authenticating with token as a bearer token.
func New(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	gh := github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
	gh.UserAgent = "repoqa"

	c := &Client{
		gh:      gh,
		timeout: DefaultRequestTimeout,
		retry:   retry.GitHubRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// call runs fn with a per-attempt timeout, classifies failures and retries
// the retryable ones.
func call[T any](ctx context.Context, c *Client, op, repo string, fn func(context.Context) (T, *github.Response, error)) (T, *github.Response, error) {
	type result struct {
		v    T
		resp *github.Response
	}

	log := clog.FromContext(ctx).With("operation", op)
	if repo != "" {
		log = log.With("repo", repo)
	}
	ctx = clog.WithLogger(ctx, log)

	r, err := retry.RetryWithBackoff(ctx, c.retry, op, isRetryable, func() (result, error) {
		actx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		v, resp, err := fn(actx)
		if err != nil {
			err = classify(ctx, op, repo, resp, err)
		}
		requestsTotal.WithLabelValues(op, KindLabel(err)).Inc()
		return result{v: v, resp: resp}, err
	})
	if err != nil {
		log.Debug("GitHub request failed", "error", err, "kind", KindLabel(err))
	}
	return r.v, r.resp, err
}
