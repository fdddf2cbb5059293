/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// QueryContext describes the query a trace belongs to.
type QueryContext struct {
	QueryID      string   `json:"query_id,omitempty"`
	Repositories []string `json:"repositories,omitempty"`
	Provider     string   `json:"provider,omitempty"` // LLM provider, e.g. "openai"
}

// EnrichAttributes appends bounded query attributes to baseAttrs.
// QueryID is left out on purpose: it is unique per query and belongs on spans,
// not metric series.
func (q QueryContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+2)
	copy(attrs, baseAttrs)

	if q.Provider != "" {
		attrs = append(attrs, attribute.String("provider", q.Provider))
	}
	attrs = append(attrs, attribute.Int("repository_count", len(q.Repositories)))
	return attrs
}

type contextKey struct{}

// WithQueryContext attaches q to ctx.
func WithQueryContext(ctx context.Context, q QueryContext) context.Context {
	return context.WithValue(ctx, contextKey{}, q)
}

// GetQueryContext returns the QueryContext stored in ctx, or the zero value.
func GetQueryContext(ctx context.Context) QueryContext {
	if q, ok := ctx.Value(contextKey{}).(QueryContext); ok {
		return q
	}
	return QueryContext{}
}
