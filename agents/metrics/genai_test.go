/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"chainguard.dev/repoqa/agents/agenttrace"
)

func TestGenAIRecordsWithoutProvider(t *testing.T) {
	// With no global MeterProvider the counters are no-ops; recording must not panic.
	m := NewGenAI(MeterName)
	var enriched int
	m.SetAttributeEnricher(func(ctx context.Context, base []attribute.KeyValue) []attribute.KeyValue {
		enriched++
		return QueryEnricher(ctx, base)
	})

	ctx := agenttrace.WithQueryContext(context.Background(), agenttrace.QueryContext{Provider: "openai"})
	m.RecordTokens(ctx, "gpt-4o-mini", 100, 20)
	m.RecordToolCall(ctx, "gpt-4o-mini", "search_code", true)
	m.RecordIteration(ctx, "gpt-4o-mini")
	m.RecordOutcome(ctx, "gpt-4o-mini", "final")

	if enriched != 4 {
		t.Errorf("enricher calls: got = %d, wanted = 4", enriched)
	}
}

func TestQueryEnricher(t *testing.T) {
	ctx := agenttrace.WithQueryContext(context.Background(), agenttrace.QueryContext{
		Repositories: []string{"adoptium/TKG"},
		Provider:     "anthropic",
	})
	got := QueryEnricher(ctx, []attribute.KeyValue{attribute.String("model", "m")})
	if len(got) != 3 {
		t.Fatalf("attributes: got = %d, wanted = 3 (%v)", len(got), got)
	}
	if got[1].Key != "provider" || got[1].Value.AsString() != "anthropic" {
		t.Errorf("provider attribute: got = %v", got[1])
	}
}
