/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command repoqa answers questions about GitHub repositories.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"chainguard.dev/repoqa/repoqa"
)

var version = "dev"

type flags struct {
	repos         []string
	maxIterations int
	metricsPort   int
	logLevel      string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:     "repoqa",
		Short:   "Answer questions about GitHub repositories",
		Long:    "repoqa explores GitHub code and issues with an LLM driven agent to answer questions about a fixed set of repositories.\nSecrets and defaults come from the environment: GITHUB_TOKEN, LLM_API_KEY, LLM_PROVIDER, LLM_MODEL, REPOSITORIES, MAX_ITERATIONS.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := setupLogging(cmd.Context(), f.logLevel)
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			if f.metricsPort > 0 {
				go serveMetrics(ctx, f.metricsPort)
			}
			return nil
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringSliceVar(&f.repos, "repo", nil, "repository to query as owner/repo (repeatable, overrides REPOSITORIES)")
	pf.IntVar(&f.maxIterations, "max-iterations", 0, "step budget per query (overrides MAX_ITERATIONS)")
	pf.IntVar(&f.metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")
	pf.StringVar(&f.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newAskCmd(f), newSummaryCmd(f), newMCPCmd(f))
	return root
}

// setupLogging installs a stderr logger; stdout carries answers and MCP traffic.
func setupLogging(ctx context.Context, level string) (context.Context, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return ctx, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
	return clog.WithLogger(ctx, clog.New(h)), nil
}

func serveMetrics(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	clog.InfoContextf(ctx, "Serving metrics on :%d", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		clog.ErrorContextf(ctx, "metrics server failed: %v", err)
	}
}

// newAgent loads the environment configuration, applies flag overrides and
// builds the agent.
func newAgent(ctx context.Context, f *flags) (*repoqa.Agent, error) {
	cfg, err := repoqa.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if len(f.repos) > 0 {
		cfg.Repositories = f.repos
	}
	if f.maxIterations != 0 {
		cfg.MaxIterations = f.maxIterations
	}
	return repoqa.New(ctx, cfg)
}
