/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "chainguard.dev/repoqa/agents/agenttrace"

// ToolCall is a single tool invocation within a trace.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Params    map[string]any `json:"params"`
	Result    any            `json:"result"`
	Error     error          `json:"error,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`

	trace *Trace
	mu    sync.Mutex
	span  oteltrace.Span
}

// Trace is one query from question to answer.
type Trace struct {
	ID        string         `json:"id"`
	Question  string         `json:"question"`
	Query     QueryContext   `json:"query,omitempty"`
	ToolCalls []*ToolCall    `json:"tool_calls"`
	Answer    string         `json:"answer"`
	Status    string         `json:"status"`
	Error     error          `json:"error,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	tracer Tracer
	mu     sync.Mutex
	ctx    context.Context
	span   oteltrace.Span
}

func newTrace(ctx context.Context, tracer Tracer, question string) *Trace {
	q := GetQueryContext(ctx)

	attrs := []attribute.KeyValue{
		attribute.String("agent.question", question),
		attribute.StringSlice("repositories", q.Repositories),
	}
	if q.QueryID != "" {
		attrs = append(attrs, attribute.String("query_id", q.QueryID))
	}
	if q.Provider != "" {
		attrs = append(attrs, attribute.String("provider", q.Provider))
	}
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "agent.query", oteltrace.WithAttributes(attrs...))

	return &Trace{
		ID:        generateTraceID(),
		Question:  question,
		Query:     q,
		ToolCalls: []*ToolCall{},
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		tracer:    tracer,
		ctx:       ctx,
		span:      span,
	}
}

// Context returns the context carrying the trace's span.
func (t *Trace) Context() context.Context {
	return t.ctx
}

// StartToolCall starts a new tool call and returns it.
func (t *Trace) StartToolCall(id, name string, params map[string]any) *ToolCall {
	_, span := otel.Tracer(instrumentationName).Start(t.ctx, "agent.tool_call", oteltrace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.id", id),
	))

	return &ToolCall{
		ID:        id,
		Name:      name,
		Params:    params,
		StartTime: time.Now(),
		trace:     t,
		span:      span,
	}
}

// BadToolCall records a call that named an unknown tool or carried invalid arguments.
func (t *Trace) BadToolCall(id, name string, params map[string]any, err error) {
	_, span := otel.Tracer(instrumentationName).Start(t.ctx, "agent.tool_call", oteltrace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.id", id),
		attribute.String("error", err.Error()),
	))
	span.SetStatus(codes.Error, err.Error())
	span.End()

	now := time.Now()
	tc := &ToolCall{
		ID:        id,
		Name:      name,
		Params:    params,
		StartTime: now,
		EndTime:   now,
		Error:     err,
		trace:     t,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ToolCalls = append(t.ToolCalls, tc)
}

// RecordTokenUsage records model and token usage as span attributes.
func (t *Trace) RecordTokenUsage(model string, inputTokens, outputTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.span != nil {
		t.span.SetAttributes(
			attribute.String("model", model),
			attribute.Int64("tokens.input", inputTokens),
			attribute.Int64("tokens.output", outputTokens),
			attribute.Int64("tokens.total", inputTokens+outputTokens),
		)
	}
}

// Complete marks the tool call as complete and adds it to the parent trace.
func (tc *ToolCall) Complete(result any, err error) {
	tc.mu.Lock()
	tc.Result = result
	tc.Error = err
	tc.EndTime = time.Now()
	trace := tc.trace
	span := tc.span
	tc.mu.Unlock()

	endSpan(span, err)

	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.ToolCalls = append(trace.ToolCalls, tc)
}

// Duration returns the duration of the tool call.
func (tc *ToolCall) Duration() time.Duration {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return elapsed(tc.StartTime, tc.EndTime)
}

// Complete finishes the trace and hands it to its tracer.
func (t *Trace) Complete(answer, status string, err error) {
	t.mu.Lock()
	t.Answer = answer
	t.Status = status
	t.Error = err
	t.EndTime = time.Now()
	tracer := t.tracer
	span := t.span
	t.mu.Unlock()

	if span != nil {
		span.SetAttributes(
			attribute.String("agent.status", status),
			attribute.Int("agent.tool_calls", len(t.ToolCalls)),
		)
	}
	endSpan(span, err)

	tracer.RecordTrace(t)
}

// Duration returns the total duration of the trace.
func (t *Trace) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return elapsed(t.StartTime, t.EndTime)
}

// String returns a readable multi-line rendering of the trace.
func (t *Trace) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Trace %s ===\n", t.ID)
	fmt.Fprintf(&sb, "Question: %q\n", t.Question)
	if len(t.Query.Repositories) > 0 {
		fmt.Fprintf(&sb, "Repositories: %s\n", strings.Join(t.Query.Repositories, ", "))
	}
	fmt.Fprintf(&sb, "Duration: %v\n", elapsed(t.StartTime, t.EndTime))

	if len(t.ToolCalls) > 0 {
		fmt.Fprintf(&sb, "\nTool Calls (%d):\n", len(t.ToolCalls))
		for i, tc := range t.ToolCalls {
			fmt.Fprintf(&sb, "  [%d] %s (ID: %s)\n", i+1, tc.Name, tc.ID)
			// Read directly; taking tc.mu here could deadlock against Complete.
			fmt.Fprintf(&sb, "      Duration: %v\n", elapsed(tc.StartTime, tc.EndTime))
			if len(tc.Params) > 0 {
				sb.WriteString("      Params:\n")
				for k, v := range tc.Params {
					fmt.Fprintf(&sb, "        %s: %v\n", k, v)
				}
			}
			if tc.Error != nil {
				fmt.Fprintf(&sb, "      Error: %v\n", tc.Error)
			} else if tc.Result != nil {
				fmt.Fprintf(&sb, "      Result: %s\n", clip(fmt.Sprintf("%v", tc.Result), 200))
			}
		}
	} else {
		sb.WriteString("\nNo tool calls\n")
	}

	sb.WriteString("\nCompletion:\n")
	if t.Status != "" {
		fmt.Fprintf(&sb, "  Status: %s\n", t.Status)
	}
	if t.Error != nil {
		fmt.Fprintf(&sb, "  Error: %v\n", t.Error)
	} else {
		fmt.Fprintf(&sb, "  Answer: %s\n", clip(t.Answer, 500))
	}

	if len(t.Metadata) > 0 {
		sb.WriteString("\nMetadata:\n")
		for k, v := range t.Metadata {
			fmt.Fprintf(&sb, "  %s: %v\n", k, v)
		}
	}
	return sb.String()
}

func endSpan(span oteltrace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func elapsed(start, end time.Time) time.Duration {
	if end.IsZero() {
		return time.Since(start)
	}
	return end.Sub(start)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// generateTraceID returns an ID of the form YYYYMMDD-HHMMSS-RRRRRRRR.
func generateTraceID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102-150405.000000")
	}
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(b))
}
