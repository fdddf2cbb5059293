/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"chainguard.dev/repoqa/agents/react"
	"chainguard.dev/repoqa/repoqa"
)

type fakeQuerier struct {
	res      *repoqa.Result
	err      error
	panic    any
	question string
}

func (f *fakeQuerier) Query(_ context.Context, question string) (*repoqa.Result, error) {
	f.question = question
	if f.panic != nil {
		panic(f.panic)
	}
	return f.res, f.err
}

func (f *fakeQuerier) Repositories() []string {
	return []string{"adoptium/aqa-tests", "eclipse-openj9/openj9"}
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name    string
		res     *repoqa.Result
		err     error
		panic   any
		input   string
		want    string
		wantErr bool
	}{{
		name:  "final answer",
		res:   &repoqa.Result{Answer: "Use TKG.", Status: react.StatusFinal},
		input: `{"input": "How do I run sanity tests?"}`,
		want:  "Use TKG.",
	}, {
		name:  "budget exhausted",
		res:   &repoqa.Result{Answer: "partial", Status: react.StatusBudgetExhausted},
		input: `{"input": "q"}`,
		want:  IncompletePrefix + "partial",
	}, {
		name:  "query failure",
		res:   &repoqa.Result{Status: react.StatusFailed},
		err:   errors.New("model turn 1: 401"),
		input: `{"input": "q"}`,
		want:  "Error processing query: model turn 1: 401",
	}, {
		name:  "panic while answering",
		panic: "runtime error: slice bounds out of range [74:56]",
		input: `{"input": "q"}`,
		want:  "Error processing query: panic: runtime error: slice bounds out of range [74:56]",
	}, {
		name:    "blank input",
		input:   `{"input": "  "}`,
		wantErr: true,
	}, {
		name:    "not json",
		input:   `question`,
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{res: tt.res, err: tt.err, panic: tt.panic}
			s, err := New(q, Config{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			got, err := s.handle(context.Background(), json.RawMessage(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("handle error: got = %v, wanted error = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("handle: got = %q, wanted = %q", got, tt.want)
			}
		})
	}
}

func TestDescriptionListsRepositories(t *testing.T) {
	got := description((&fakeQuerier{}).Repositories())
	for _, want := range []string{"- adoptium/aqa-tests\n", "- eclipse-openj9/openj9\n", "input:"} {
		if !strings.Contains(got, want) {
			t.Errorf("description missing %q:\n%s", want, got)
		}
	}
}

func TestNewRejectsNilQuerier(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Error("New(nil): got = nil, wanted error")
	}
}
