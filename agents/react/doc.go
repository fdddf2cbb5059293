/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package react implements the reasoning loop that answers a question by
// alternating model turns with tool calls.
//
// The loop is an explicit state machine:
//
//	init -> awaiting_model -> tool_dispatch -> observation_appended
//	                ^                                   |
//	                +-----------------------------------+
//	awaiting_model | observation_appended -> terminated
//
// A reply with native tool calls dispatches them in order. A text reply is
// either a "Final Answer:", an inline JSON action, or the answer itself; an
// empty reply earns a corrective nudge. Each dispatched call and each nudge
// is one step, and the loop stops with StatusBudgetExhausted once the step
// budget is spent.
//
//	loop, err := react.New(m, registry, react.WithMaxIterations(5))
//	out, err := loop.Run(ctx, react.Input{Question: "How is JIT tested?", Repositories: repos})
//	if out.Finished() {
//		fmt.Println(out.Answer)
//	}
package react
