/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"chainguard.dev/repoqa/agents/agenttrace"
)

// ExactToolCalls checks the trace has exactly n tool calls, malformed ones included.
func ExactToolCalls(n int) Check {
	return func(o Observer, trace *agenttrace.Trace) {
		if got := len(trace.ToolCalls); got != n {
			o.Fail(fmt.Sprintf("tool call count: got = %d, wanted = %d", got, n))
		}
	}
}

// MaximumNToolCalls checks the trace has at most n tool calls.
func MaximumNToolCalls(n int) Check {
	return func(o Observer, trace *agenttrace.Trace) {
		if got := len(trace.ToolCalls); got > n {
			o.Fail(fmt.Sprintf("tool call count: got = %d, wanted <= %d", got, n))
		}
	}
}

// NoToolCalls checks the question was answered without tools.
func NoToolCalls() Check {
	return ExactToolCalls(0)
}

// OnlyToolCalls checks every call named one of toolNames.
func OnlyToolCalls(toolNames ...string) Check {
	allowed := make(map[string]struct{}, len(toolNames))
	for _, name := range toolNames {
		allowed[name] = struct{}{}
	}

	return func(o Observer, trace *agenttrace.Trace) {
		for _, tc := range trace.ToolCalls {
			if _, ok := allowed[tc.Name]; !ok {
				o.Fail(fmt.Sprintf("unexpected tool call %q, only allowed: %v", tc.Name, toolNames))
				return
			}
		}
	}
}

// RequiredToolCalls checks each of toolNames was called at least once.
func RequiredToolCalls(toolNames ...string) Check {
	base := make(map[string]struct{}, len(toolNames))
	for _, name := range toolNames {
		base[name] = struct{}{}
	}

	return func(o Observer, trace *agenttrace.Trace) {
		required := maps.Clone(base)
		for _, tc := range trace.ToolCalls {
			delete(required, tc.Name)
		}
		if len(required) > 0 {
			missing := slices.Sorted(maps.Keys(required))
			o.Fail(fmt.Sprintf("missing required tool calls: %v", missing))
		}
	}
}

// NoErrors checks neither the trace nor any of its tool calls failed.
// Tool observations carrying an "error" field count as failures.
func NoErrors() Check {
	return func(o Observer, trace *agenttrace.Trace) {
		if trace.Error != nil {
			o.Fail(fmt.Sprintf("trace error: got = %v, wanted = nil", trace.Error))
			return
		}
		for _, tc := range trace.ToolCalls {
			if tc.Error != nil {
				o.Fail(fmt.Sprintf("tool call %s error: got = %v, wanted = nil", tc.Name, tc.Error))
				return
			}
		}
	}
}

// Status checks how the query terminated.
func Status(want string) Check {
	return func(o Observer, trace *agenttrace.Trace) {
		if trace.Status != want {
			o.Fail(fmt.Sprintf("status: got = %q, wanted = %q", trace.Status, want))
		}
	}
}

// AnswerContains checks the final answer mentions each of substrs.
func AnswerContains(substrs ...string) Check {
	return func(o Observer, trace *agenttrace.Trace) {
		for _, s := range substrs {
			if !strings.Contains(trace.Answer, s) {
				o.Fail(fmt.Sprintf("answer does not mention %q", s))
			}
		}
	}
}
