/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Tracer creates traces and receives them once they complete.
type Tracer interface {
	// NewTrace creates a new trace for the given question.
	NewTrace(ctx context.Context, question string) *Trace
	// RecordTrace records a completed trace.
	RecordTrace(trace *Trace)
}

type tracerKey struct{}

// WithTracer returns a new context carrying tracer.
func WithTracer(ctx context.Context, tracer Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, tracer)
}

// TracerFromContext returns the tracer in ctx, or a clog backed default.
func TracerFromContext(ctx context.Context) Tracer {
	if tracer, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return tracer
	}
	return NewDefaultTracer(ctx)
}

// StartTrace starts a trace using the tracer from ctx.
func StartTrace(ctx context.Context, question string) *Trace {
	return TracerFromContext(ctx).NewTrace(ctx, question)
}

// TraceCallback receives completed traces.
type TraceCallback func(*Trace)

type byCodeTracer struct {
	callbacks []TraceCallback
}

// ByCode returns a Tracer that invokes callbacks for every completed trace.
func ByCode(callbacks ...TraceCallback) Tracer {
	return &byCodeTracer{callbacks: callbacks}
}

func (t *byCodeTracer) NewTrace(ctx context.Context, question string) *Trace {
	return newTrace(ctx, t, question)
}

// RecordTrace runs all callbacks in parallel and waits for them.
func (t *byCodeTracer) RecordTrace(trace *Trace) {
	var g errgroup.Group
	for _, cb := range t.callbacks {
		if cb == nil {
			continue
		}
		g.Go(func() error {
			cb(trace)
			return nil
		})
	}
	_ = g.Wait()
}

// NewDefaultTracer returns a tracer that logs completed traces to clog.
func NewDefaultTracer(ctx context.Context) Tracer {
	logger := clog.FromContext(ctx)
	return ByCode(func(trace *Trace) {
		logger.With(
			"trace_id", trace.ID,
			"duration_ms", trace.Duration().Milliseconds(),
			"tool_calls", len(trace.ToolCalls),
			"status", trace.Status,
		).Debug("Query trace completed", "trace", trace.String())
	})
}
