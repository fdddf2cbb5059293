/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package modeltest provides a deterministic model.Model for tests.
package modeltest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/toolcall"
)

// ErrExhausted is returned once every scripted reply has been served and no
// fallback is set.
var ErrExhausted = errors.New("scripted model has no more replies")

// Step produces one reply. It sees the request so scripts can react to
// earlier observations.
type Step func(req model.Request) (*model.Reply, error)

// Scripted replays Steps in order, then repeats Fallback if set.
type Scripted struct {
	Steps    []Step
	Fallback Step

	mu       sync.Mutex
	requests []model.Request
}

var _ model.Model = (*Scripted)(nil)

// Name implements model.Model.
func (s *Scripted) Name() string { return "scripted" }

// Complete implements model.Model.
func (s *Scripted) Complete(ctx context.Context, req model.Request) (*model.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, clone(req))
	s.mu.Unlock()

	switch {
	case n < len(s.Steps):
		return s.Steps[n](req)
	case s.Fallback != nil:
		return s.Fallback(req)
	default:
		return nil, ErrExhausted
	}
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func clone(req model.Request) model.Request {
	req.Messages = slices.Clone(req.Messages)
	req.Tools = slices.Clone(req.Tools)
	return req
}

// Text replies with plain text.
func Text(text string) Step {
	return func(model.Request) (*model.Reply, error) {
		return &model.Reply{Text: text}, nil
	}
}

// Call replies with native tool calls.
func Call(calls ...toolcall.ToolCall) Step {
	return func(model.Request) (*model.Reply, error) {
		return &model.Reply{ToolCalls: slices.Clone(calls)}, nil
	}
}

// Fail replies with err.
func Fail(err error) Step {
	return func(model.Request) (*model.Reply, error) {
		return nil, err
	}
}
