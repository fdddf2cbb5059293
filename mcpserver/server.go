/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package mcpserver exposes the agent as a Model Context Protocol server
// with a single "query" tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	mcpgo "github.com/felixgeelhaar/mcp-go"

	"chainguard.dev/repoqa/repoqa"
)

// ToolName is the name of the single tool the server exposes.
const ToolName = "query"

// IncompletePrefix marks answers produced when the agent ran out of steps.
const IncompletePrefix = "[Incomplete answer: the step limit was reached] "

// Querier answers questions. *repoqa.Agent implements it.
type Querier interface {
	Query(ctx context.Context, question string) (*repoqa.Result, error)
	Repositories() []string
}

// Config configures a Server.
type Config struct {
	Name    string
	Version string
}

// Server serves one Querier over MCP.
type Server struct {
	q   Querier
	srv *mcpgo.Server
}

// New registers the query tool backed by q.
func New(q Querier, cfg Config) (*Server, error) {
	if q == nil {
		return nil, errors.New("querier cannot be nil")
	}
	if cfg.Name == "" {
		cfg.Name = "repoqa"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	srv := mcpgo.NewServer(mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: "Answers questions about GitHub repositories by exploring their code and issues.",
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}, mcpgo.WithInstructions(`Call the "query" tool with {"input": "<your question>"}.`))

	s := &Server{q: q, srv: srv}
	srv.Tool(ToolName).
		Description(description(q.Repositories())).
		Handler(s.handle)
	return s, nil
}

// ServeStdio serves over stdin and stdout until ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcpgo.ServeStdio(ctx, s.srv, mcpgo.WithMiddleware(mcpgo.Recover()))
}

type queryInput struct {
	Input string `json:"input"`
}

func (s *Server) handle(ctx context.Context, raw json.RawMessage) (string, error) {
	var in queryInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(in.Input) == "" {
		return "", errors.New(`"input" must be a non-empty question`)
	}

	log := clog.FromContext(ctx)
	res, err := s.query(ctx, in.Input)
	if err != nil {
		log.Error("Query failed", "error", err)
		return fmt.Sprintf("Error processing query: %v", err), nil
	}
	log.Info("Query answered", "query_id", res.QueryID, "status", res.Status, "iterations", res.Iterations)
	if !res.Finished() {
		return IncompletePrefix + res.Answer, nil
	}
	return res.Answer, nil
}

// query runs one question. A panic while answering becomes an error so a
// single bad reply cannot take the server down.
func (s *Server) query(ctx context.Context, question string) (res *repoqa.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.q.Query(ctx, question)
}

func description(repos []string) string {
	var sb strings.Builder
	sb.WriteString("Ask questions about the repositories below. The agent explores GitHub and answers from the code and issues it finds.\n\nRepositories:\n")
	for _, r := range repos {
		fmt.Fprintf(&sb, "- %s\n", r)
	}
	sb.WriteString("\nArgs:\n  input: your question about the repositories")
	return sb.String()
}
