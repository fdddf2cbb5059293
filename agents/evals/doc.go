/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package evals checks completed query traces against expectations, such
// as "never more than N tool calls" or "only these tools were used".
//
// Checks run when a trace completes. Install them on the context with
// agenttrace.WithTracer:
//
//	obs := testevals.New(t)
//	ctx = agenttrace.WithTracer(ctx, evals.Tracer(obs,
//		evals.MaximumNToolCalls(5),
//		evals.OnlyToolCalls("search_code", "get_file_contents"),
//		evals.NoErrors(),
//	))
//
// A check that fails reports through Observer.Fail and keeps going; checks
// never stop the query they observe.
package evals
