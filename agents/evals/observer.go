/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import "chainguard.dev/repoqa/agents/agenttrace"

// Observer receives the verdicts of checks.
type Observer interface {
	// Fail marks the evaluation as failed with the given message.
	Fail(string)
	// Log records a message.
	Log(string)
	// Increment is called each time a trace is evaluated.
	Increment()
	// Total returns the number of evaluated traces.
	Total() int64
}

// Check inspects one completed trace.
type Check func(Observer, *agenttrace.Trace)

// Inject binds obs to check, producing a callback for agenttrace.ByCode.
func Inject(obs Observer, check Check) agenttrace.TraceCallback {
	return func(trace *agenttrace.Trace) {
		obs.Increment()
		check(obs, trace)
	}
}

// Tracer returns a tracer that runs every check against each completed trace.
func Tracer(obs Observer, checks ...Check) agenttrace.Tracer {
	return agenttrace.ByCode(func(trace *agenttrace.Trace) {
		obs.Increment()
		for _, check := range checks {
			check(obs, trace)
		}
	})
}
