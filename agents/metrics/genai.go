/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the meter shared by every provider and the agent loop.
const MeterName = "chainguard.dev/repoqa/agents"

// GenAI provides OpenTelemetry metrics for the question-answering loop:
// token usage, tool calls, model turns and query outcomes.
// A counter that fails to initialize degrades to a no-op.
type GenAI struct {
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	toolCalls        metric.Int64Counter
	iterations       metric.Int64Counter
	outcomes         metric.Int64Counter
	attrEnricher     AttributeEnricher
}

// NewGenAI creates a new GenAI metrics instance with the specified meter name.
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			slog.Warn("Failed to create counter, metric will be disabled", "error", err, "meter", meterName, "counter", name)
			return noop.Int64Counter{}
		}
		return c
	}

	return &GenAI{
		promptTokens:     counter("genai.token.prompt", "The number of prompt tokens used", "{tokens}"),
		completionTokens: counter("genai.token.completion", "The number of completion tokens used", "{tokens}"),
		toolCalls:        counter("genai.tool.calls", "The number of tool calls made during execution", "{calls}"),
		iterations:       counter("genai.agent.iterations", "The number of model turns taken by the agent loop", "{turns}"),
		outcomes:         counter("genai.agent.outcomes", "The number of queries by terminal status", "{queries}"),
	}
}

// SetAttributeEnricher sets the enricher called before recording each metric.
func (m *GenAI) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *GenAI) attrs(ctx context.Context, base []attribute.KeyValue, extra []attribute.KeyValue) metric.AddOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(append(base, extra...)...)
}

// RecordTokens records prompt and completion token usage.
func (m *GenAI) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64, attrs ...attribute.KeyValue) {
	opt := m.attrs(ctx, []attribute.KeyValue{attribute.String("model", model)}, attrs)
	m.promptTokens.Add(ctx, promptTokens, opt)
	m.completionTokens.Add(ctx, completionTokens, opt)
}

// RecordToolCall records a tool invocation. Rejected calls are recorded too,
// with valid=false.
func (m *GenAI) RecordToolCall(ctx context.Context, model, toolName string, valid bool, attrs ...attribute.KeyValue) {
	m.toolCalls.Add(ctx, 1, m.attrs(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("tool", toolName),
		attribute.Bool("valid", valid),
	}, attrs))
}

// RecordIteration records one model turn.
func (m *GenAI) RecordIteration(ctx context.Context, model string, attrs ...attribute.KeyValue) {
	m.iterations.Add(ctx, 1, m.attrs(ctx, []attribute.KeyValue{attribute.String("model", model)}, attrs))
}

// RecordOutcome records how a query terminated.
func (m *GenAI) RecordOutcome(ctx context.Context, model, status string, attrs ...attribute.KeyValue) {
	m.outcomes.Add(ctx, 1, m.attrs(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("status", status),
	}, attrs))
}
