/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repoqa

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"chainguard.dev/repoqa/ghclient"
)

// ErrConfiguration is wrapped by every configuration failure. It is raised
// before any request is made.
var ErrConfiguration = errors.New("invalid configuration")

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Providers lists the supported LLM providers.
var Providers = []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini}

// DefaultRepositories are the Adoptium and OpenJ9 repositories the agent
// answers questions about unless told otherwise.
var DefaultRepositories = []string{
	"adoptium/aqa-tests",
	"adoptium/TKG",
	"adoptium/aqa-systemtest",
	"adoptium/aqa-test-tools",
	"adoptium/STF",
	"adoptium/bumblebench",
	"adoptium/run-aqa",
	"adoptium/openj9-systemtest",
	"eclipse-openj9/openj9",
}

// Config configures an Agent. Fields are read from the environment by LoadConfig.
type Config struct {
	GitHubToken string `env:"GITHUB_TOKEN"`
	LLMAPIKey   string `env:"LLM_API_KEY"`

	Provider   string `env:"LLM_PROVIDER,default=openai"`
	LLMBaseURL string `env:"LLM_BASE_URL"`
	// Model overrides the provider's default model.
	Model string `env:"LLM_MODEL"`

	Repositories     []string `env:"REPOSITORIES"`
	MaxIterations    int      `env:"MAX_ITERATIONS,default=10"`
	ObservationLimit int      `env:"OBSERVATION_LIMIT,default=1500"`

	GitHubBaseURL    string        `env:"GITHUB_BASE_URL"`
	RequestTimeout   time.Duration `env:"GITHUB_REQUEST_TIMEOUT,default=15s"`
	CacheConcurrency int           `env:"CACHE_CONCURRENCY,default=4"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig(ctx context.Context) (Config, error) {
	return LoadConfigWith(ctx, envconfig.OsLookuper())
}

// LoadConfigWith reads the configuration from l and validates it.
func LoadConfigWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrConfiguration, envKey(err), err)
	}
	if len(cfg.Repositories) == 0 {
		cfg.Repositories = slices.Clone(DefaultRepositories)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey names the environment variable behind an envconfig error, which
// reports the Go field name. It returns "environment" when no field matches.
func envKey(err error) string {
	msg := err.Error()
	t := reflect.TypeFor[Config]()
	for i := range t.NumField() {
		f := t.Field(i)
		if !strings.HasPrefix(msg, f.Name+":") {
			continue
		}
		if key, _, _ := strings.Cut(f.Tag.Get("env"), ","); key != "" {
			return key
		}
	}
	return "environment"
}

// Validate reports every problem with c, wrapped in ErrConfiguration.
func (c Config) Validate() error {
	var errs []error
	if c.GitHubToken == "" {
		errs = append(errs, errors.New("GITHUB_TOKEN is required"))
	}
	if c.LLMAPIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required"))
	}
	if !slices.Contains(Providers, c.Provider) {
		errs = append(errs, fmt.Errorf("unknown LLM provider %q, must be one of %v", c.Provider, Providers))
	}
	if len(c.Repositories) == 0 {
		errs = append(errs, errors.New("at least one repository is required"))
	} else if _, err := ghclient.ParseRepos(c.Repositories); err != nil {
		errs = append(errs, err)
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations))
	}
	if c.ObservationLimit <= 0 {
		errs = append(errs, fmt.Errorf("observation limit must be positive, got %d", c.ObservationLimit))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout))
	}
	if c.CacheConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("cache concurrency must be positive, got %d", c.CacheConcurrency))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}
