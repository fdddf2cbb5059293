/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"chainguard.dev/repoqa/agents/agenttrace"
)

// AttributeEnricher enriches metric attributes with additional context.
// The enricher receives the base attributes (model, tool, ...) and returns
// the enriched set.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

// QueryEnricher adds the bounded attributes of the query in ctx.
func QueryEnricher(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	return agenttrace.GetQueryContext(ctx).EnrichAttributes(baseAttrs)
}
