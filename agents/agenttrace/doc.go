/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace records what a repository question-answering run did.

A Trace covers one query from question to answer. Every tool invocation the
model asks for becomes a ToolCall on that trace, including calls rejected for
naming an unknown tool or carrying bad arguments (see Trace.BadToolCall).
Each trace and tool call is mirrored as an OpenTelemetry span.

Completed traces are handed to the Tracer found in the context:

	tracer := agenttrace.ByCode(func(tr *agenttrace.Trace) {
		log.Printf("query %s took %v", tr.ID, tr.Duration())
	})
	ctx = agenttrace.WithTracer(ctx, tracer)

	tr := agenttrace.StartTrace(ctx, "Which test harness does aqa-tests use?")
	tc := tr.StartToolCall("call_1", "search_code", map[string]any{"query": "TKG"})
	tc.Complete(observation, nil)
	tr.Complete("TKG", "final", nil)

Without an explicit tracer, completed traces are logged through clog.
*/
package agenttrace
