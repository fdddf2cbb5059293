/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testevals reports evals verdicts through a testing.TB.
package testevals

import (
	"sync/atomic"
	"testing"

	"chainguard.dev/repoqa/agents/evals"
)

type observer struct {
	tb     testing.TB
	prefix string
	count  atomic.Int64
}

// New returns an Observer that fails tb.
func New(tb testing.TB) evals.Observer {
	return &observer{tb: tb}
}

// NewPrefix returns an Observer that fails tb with prefixed messages.
func NewPrefix(tb testing.TB, prefix string) evals.Observer {
	return &observer{tb: tb, prefix: prefix}
}

func (o *observer) Fail(msg string) {
	if o.prefix != "" {
		o.tb.Errorf("%s: %s", o.prefix, msg)
	} else {
		o.tb.Error(msg)
	}
}

func (o *observer) Log(msg string) {
	if o.prefix != "" {
		o.tb.Logf("%s: %s", o.prefix, msg)
	} else {
		o.tb.Log(msg)
	}
}

func (o *observer) Increment() {
	o.count.Add(1)
}

func (o *observer) Total() int64 {
	return o.count.Load()
}
