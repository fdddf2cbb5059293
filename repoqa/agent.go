/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repoqa

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"chainguard.dev/repoqa/agents/agenttrace"
	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/model/claudemodel"
	"chainguard.dev/repoqa/agents/model/geminimodel"
	"chainguard.dev/repoqa/agents/model/openaimodel"
	"chainguard.dev/repoqa/agents/react"
	"chainguard.dev/repoqa/ghclient"
	"chainguard.dev/repoqa/repocontext"
	"chainguard.dev/repoqa/repotools"
)

// Status is how a query terminated.
type Status = react.Status

// Result is the answer to one query.
type Result struct {
	QueryID string
	Answer  string
	Status  Status
	// Iterations counts tool invocation steps.
	Iterations   int
	Turns        int
	Conversation []model.Message
	States       []react.State
}

// Finished reports whether the model produced a final answer, as opposed
// to running out of steps.
func (r *Result) Finished() bool { return r.Status == react.StatusFinal }

// Option configures New.
type Option func(*options) error

type options struct {
	model     model.Model
	callbacks *repotools.Callbacks
}

// WithModel uses m instead of building a client for the configured provider.
func WithModel(m model.Model) Option {
	return func(o *options) error {
		if m == nil {
			return errors.New("model cannot be nil")
		}
		o.model = m
		return nil
	}
}

// WithCallbacks uses cb for GitHub access instead of a ghclient.Client.
func WithCallbacks(cb repotools.Callbacks) Option {
	return func(o *options) error {
		o.callbacks = &cb
		return nil
	}
}

// Agent answers questions about a fixed set of repositories. It is safe for
// concurrent use.
type Agent struct {
	provider string
	model    model.Model
	cache    *repocontext.Cache
	loop     *react.Loop
}

// New validates cfg, loads the repository structure cache and builds the
// agent. Every error wraps ErrConfiguration except cache load failures, which
// are recorded per repository instead.
func New(ctx context.Context, cfg Config, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	cb, err := callbacks(ctx, cfg, o.callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	m := o.model
	if m == nil {
		if m, err = newModel(ctx, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	repos, err := ghclient.ParseRepos(cfg.Repositories)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	cache := repocontext.Load(ctx, cb.Tree, repos, repocontext.WithConcurrency(cfg.CacheConcurrency))

	reg, err := repotools.NewRegistry(cb, cache)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	loop, err := react.New(m, reg,
		react.WithMaxIterations(cfg.MaxIterations),
		react.WithObservationLimit(cfg.ObservationLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	clog.FromContext(ctx).Info("Agent ready",
		"provider", cfg.Provider,
		"model", m.Name(),
		"repositories", len(repos),
		"max_iterations", cfg.MaxIterations)

	return &Agent{provider: cfg.Provider, model: m, cache: cache, loop: loop}, nil
}

func callbacks(ctx context.Context, cfg Config, override *repotools.Callbacks) (repotools.Callbacks, error) {
	if override != nil {
		return *override, nil
	}
	gh, err := ghclient.New(ctx, cfg.GitHubToken,
		ghclient.WithBaseURL(cfg.GitHubBaseURL),
		ghclient.WithRequestTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return repotools.Callbacks{}, err
	}
	return repotools.ClientCallbacks(gh, ghclient.SearchOptions{}), nil
}

func newModel(ctx context.Context, cfg Config) (model.Model, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		var opts []openaimodel.Option
		if cfg.LLMBaseURL != "" {
			opts = append(opts, openaimodel.WithBaseURL(cfg.LLMBaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, openaimodel.WithModel(cfg.Model))
		}
		return openaimodel.New(cfg.LLMAPIKey, opts...)

	case ProviderAnthropic:
		clientOpts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(cfg.LLMAPIKey)}
		if cfg.LLMBaseURL != "" {
			clientOpts = append(clientOpts, anthropicoption.WithBaseURL(cfg.LLMBaseURL))
		}
		var opts []claudemodel.Option
		if cfg.Model != "" {
			opts = append(opts, claudemodel.WithModel(cfg.Model))
		}
		return claudemodel.New(anthropic.NewClient(clientOpts...), opts...)

	case ProviderGemini:
		client, err := geminimodel.NewClient(ctx, cfg.LLMAPIKey)
		if err != nil {
			return nil, err
		}
		var opts []geminimodel.Option
		if cfg.Model != "" {
			opts = append(opts, geminimodel.WithModel(cfg.Model))
		}
		return geminimodel.New(client, opts...)

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Repositories returns the configured repositories in order.
func (a *Agent) Repositories() []string { return a.cache.Repositories() }

// Summaries returns the cached structure summary of every repository, in
// configured order. Failed loads are included.
func (a *Agent) Summaries() []*repocontext.Summary {
	out := make([]*repocontext.Summary, 0, len(a.cache.Repositories()))
	for _, repo := range a.cache.Repositories() {
		if s, ok := a.cache.Get(repo); ok {
			out = append(out, s)
		}
	}
	return out
}

// Model returns the name of the model answering queries.
func (a *Agent) Model() string { return a.model.Name() }

// Query answers question. Running out of steps is not an error: check
// Result.Finished. Cancellation and LLM failures return a partial Result
// together with the error.
func (a *Agent) Query(ctx context.Context, question string) (*Result, error) {
	qid := uuid.NewString()
	ctx = agenttrace.WithQueryContext(ctx, agenttrace.QueryContext{
		QueryID:      qid,
		Repositories: a.cache.Repositories(),
		Provider:     a.provider,
	})
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("query_id", qid))

	out, err := a.loop.Run(ctx, react.Input{
		Question:          question,
		Repositories:      a.cache.Repositories(),
		RepositoryContext: a.cache.Render(),
	})
	if out == nil {
		return nil, err
	}
	return &Result{
		QueryID:      qid,
		Answer:       out.Answer,
		Status:       out.Status,
		Iterations:   out.Steps,
		Turns:        out.Turns,
		Conversation: out.Conversation.Messages(),
		States:       out.States,
	}, err
}
