/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package react_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"chainguard.dev/repoqa/agents/agenttrace"
	"chainguard.dev/repoqa/agents/evals"
	"chainguard.dev/repoqa/agents/evals/testevals"
	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/model/modeltest"
	"chainguard.dev/repoqa/agents/react"
	"chainguard.dev/repoqa/agents/toolcall"
)

var repos = []string{"adoptium/aqa-tests", "adoptium/TKG"}

// fakeTools registers search_code and get_repo_structure. search_code echoes
// its query; calls counts successful dispatches.
func fakeTools(t *testing.T, calls *atomic.Int32) *toolcall.Registry {
	t.Helper()
	reg, err := toolcall.NewRegistry(
		toolcall.Tool{
			Def: toolcall.Definition{
				Name:        "search_code",
				Description: "Search code",
				Parameters: []toolcall.Parameter{
					{Name: "query", Type: "string", Description: "query", Required: true},
					{Name: "repos", Type: "array", Description: "repositories"},
				},
			},
			Handler: func(_ context.Context, call toolcall.ToolCall) map[string]any {
				calls.Add(1)
				return map[string]any{"query": call.Args["query"], "total_count": 1}
			},
		},
		toolcall.Tool{
			Def: toolcall.Definition{
				Name:        "get_repo_structure",
				Description: "List a repository tree",
				Parameters: []toolcall.Parameter{
					{Name: "repo", Type: "string", Description: "owner/name", Required: true},
				},
			},
			Handler: func(_ context.Context, call toolcall.ToolCall) map[string]any {
				calls.Add(1)
				return map[string]any{"repository": call.Args["repo"], "total_items": 3}
			},
		},
	)
	require.NoError(t, err)
	return reg
}

func search(id, query string) toolcall.ToolCall {
	return toolcall.ToolCall{ID: id, Name: "search_code", Args: map[string]any{"query": query}}
}

func newLoop(t *testing.T, m model.Model, calls *atomic.Int32, opts ...react.Option) *react.Loop {
	t.Helper()
	loop, err := react.New(m, fakeTools(t, calls), opts...)
	require.NoError(t, err)
	return loop
}

func input(question string) react.Input {
	return react.Input{Question: question, Repositories: repos, RepositoryContext: "REPOSITORY STRUCTURE CONTEXT:"}
}

func TestFinalAnswerOnFirstTurn(t *testing.T) {
	var calls atomic.Int32
	m := &modeltest.Scripted{Steps: []modeltest.Step{modeltest.Text("TKG is the test kit generator.")}}

	out, err := newLoop(t, m, &calls).Run(context.Background(), input("What is TKG?"))
	require.NoError(t, err)

	if !out.Finished() || out.Status != react.StatusFinal {
		t.Errorf("status: got = %s, wanted = %s", out.Status, react.StatusFinal)
	}
	if out.Answer != "TKG is the test kit generator." {
		t.Errorf("answer: got = %q", out.Answer)
	}
	if out.Turns != 1 || out.Steps != 0 {
		t.Errorf("turns/steps: got = %d/%d, wanted = 1/0", out.Turns, out.Steps)
	}
	want := []react.State{react.StateInit, react.StateAwaitingModel, react.StateTerminated}
	if diff := cmp.Diff(want, out.States); diff != "" {
		t.Errorf("states (-want +got):\n%s", diff)
	}
	if out.Conversation.Len() != 2 {
		t.Errorf("conversation length: got = %d, wanted = 2", out.Conversation.Len())
	}
}

func TestFinalAnswerMarkerIsStripped(t *testing.T) {
	var calls atomic.Int32
	m := &modeltest.Scripted{Steps: []modeltest.Step{
		modeltest.Text("Thought: I know this.\nFinal Answer: Sanity tests live in functional/."),
	}}

	out, err := newLoop(t, m, &calls).Run(context.Background(), input("Where are the sanity tests?"))
	require.NoError(t, err)
	if out.Answer != "Sanity tests live in functional/." {
		t.Errorf("answer: got = %q", out.Answer)
	}
}

func TestBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	m := &modeltest.Scripted{Fallback: modeltest.Call(search("call_1", "junit"))}

	out, err := newLoop(t, m, &calls, react.WithMaxIterations(1)).Run(context.Background(), input("q"))
	require.NoError(t, err)

	if out.Finished() || out.Status != react.StatusBudgetExhausted {
		t.Errorf("status: got = %s, wanted = %s", out.Status, react.StatusBudgetExhausted)
	}
	if out.Steps != 1 || calls.Load() != 1 {
		t.Errorf("steps/calls: got = %d/%d, wanted = 1/1", out.Steps, calls.Load())
	}
	if !strings.Contains(out.Answer, "maximum number of reasoning steps (1)") {
		t.Errorf("answer: got = %q", out.Answer)
	}
	if !strings.Contains(out.Answer, `"query":"junit"`) {
		t.Errorf("answer does not reference the last observation: %q", out.Answer)
	}
	want := []react.State{
		react.StateInit, react.StateAwaitingModel, react.StateToolDispatch,
		react.StateObservationAppended, react.StateTerminated,
	}
	if diff := cmp.Diff(want, out.States); diff != "" {
		t.Errorf("states (-want +got):\n%s", diff)
	}
}

func TestBudgetNeverExceeded(t *testing.T) {
	for _, limit := range []int{1, 2, 5, 7} {
		t.Run(fmt.Sprint(limit), func(t *testing.T) {
			var calls atomic.Int32
			// Three calls per reply, so budgets can run out mid-reply.
			m := &modeltest.Scripted{Fallback: modeltest.Call(search("a", "1"), search("b", "2"), search("c", "3"))}
			ctx := agenttrace.WithTracer(context.Background(), evals.Tracer(testevals.New(t),
				evals.MaximumNToolCalls(limit),
				evals.OnlyToolCalls("search_code"),
				evals.Status(string(react.StatusBudgetExhausted)),
				evals.NoErrors(),
			))

			out, err := newLoop(t, m, &calls, react.WithMaxIterations(limit)).Run(ctx, input("q"))
			require.NoError(t, err)
			if got := int(calls.Load()); got != limit {
				t.Errorf("dispatched calls: got = %d, wanted = %d", got, limit)
			}
			if out.Steps != limit || out.Status != react.StatusBudgetExhausted {
				t.Errorf("outcome: got = (%d, %s), wanted = (%d, %s)", out.Steps, out.Status, limit, react.StatusBudgetExhausted)
			}
		})
	}
}

func TestMalformedCallsContinue(t *testing.T) {
	var calls atomic.Int32
	m := &modeltest.Scripted{Steps: []modeltest.Step{
		modeltest.Call(toolcall.ToolCall{ID: "c1", Name: "delete_repo", Args: map[string]any{}}),
		modeltest.Call(toolcall.ToolCall{ID: "c2", Name: "search_code", Args: map[string]any{}}),
		modeltest.Text("Final Answer: recovered"),
	}}

	out, err := newLoop(t, m, &calls).Run(context.Background(), input("q"))
	require.NoError(t, err)

	if out.Answer != "recovered" || out.Steps != 2 {
		t.Errorf("outcome: got = (%q, %d), wanted = (recovered, 2)", out.Answer, out.Steps)
	}
	if calls.Load() != 0 {
		t.Errorf("handlers ran for malformed calls: %d", calls.Load())
	}

	var tool []string
	for _, msg := range out.Conversation.Messages() {
		if msg.Role == model.RoleTool {
			tool = append(tool, msg.Content)
		}
	}
	require.Len(t, tool, 2)
	if !strings.Contains(tool[0], "unknown tool") || !strings.Contains(tool[0], "available_tools") {
		t.Errorf("unknown tool observation: %s", tool[0])
	}
	if !strings.Contains(tool[1], "invalid arguments for search_code") {
		t.Errorf("invalid arguments observation: %s", tool[1])
	}
}

func TestInlineAction(t *testing.T) {
	var calls atomic.Int32
	m := &modeltest.Scripted{Steps: []modeltest.Step{
		modeltest.Text("Thought: check the tree.\n\nAction:\n{\"tool\": \"get_repo_structure\", \"parameters\": {\"repo\": \"adoptium/TKG\"}}"),
		modeltest.Text("Final Answer: three files"),
	}}

	out, err := newLoop(t, m, &calls).Run(context.Background(), input("q"))
	require.NoError(t, err)
	if out.Answer != "three files" || calls.Load() != 1 {
		t.Errorf("outcome: got = (%q, %d calls)", out.Answer, calls.Load())
	}

	msgs := out.Conversation.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleUser || !strings.HasPrefix(last.Content, "Observation: ") {
		t.Errorf("observation message: got = %+v", last)
	}
	if !strings.Contains(last.Content, `"repository":"adoptium/TKG"`) {
		t.Errorf("observation content: %s", last.Content)
	}
}

func TestNudgeOnEmptyReply(t *testing.T) {
	var calls atomic.Int32
	m := &modeltest.Scripted{Steps: []modeltest.Step{modeltest.Text("  "), modeltest.Text("ok")}}

	out, err := newLoop(t, m, &calls).Run(context.Background(), input("q"))
	require.NoError(t, err)
	if out.Answer != "ok" || out.Steps != 1 || out.Turns != 2 {
		t.Errorf("outcome: got = (%q, steps %d, turns %d)", out.Answer, out.Steps, out.Turns)
	}
	msgs := out.Conversation.Messages()
	if !strings.HasPrefix(msgs[2].Content, "I didn't find a valid action") {
		t.Errorf("nudge: got = %q", msgs[2].Content)
	}
	if !strings.Contains(msgs[2].Content, `"adoptium/TKG"`) {
		t.Errorf("nudge does not list repositories: %q", msgs[2].Content)
	}
}

func TestObservationsInOrderAndReplayable(t *testing.T) {
	script := func() *modeltest.Scripted {
		return &modeltest.Scripted{Steps: []modeltest.Step{
			modeltest.Call(search("a", "first"), search("b", "second"), search("c", "third")),
			modeltest.Text("done"),
		}}
	}

	var calls atomic.Int32
	first, err := newLoop(t, script(), &calls).Run(context.Background(), input("q"))
	require.NoError(t, err)
	second, err := newLoop(t, script(), &calls).Run(context.Background(), input("q"))
	require.NoError(t, err)

	if diff := cmp.Diff(first.Conversation.Messages(), second.Conversation.Messages()); diff != "" {
		t.Errorf("replay differs (-first +second):\n%s", diff)
	}

	var ids []string
	for _, msg := range first.Conversation.Messages() {
		if msg.Role == model.RoleTool {
			ids = append(ids, msg.ToolCallID)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("observation order (-want +got):\n%s", diff)
	}
}

func TestModelFailureIsFatal(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("bad credentials")
	m := &modeltest.Scripted{Steps: []modeltest.Step{modeltest.Fail(boom)}}

	out, err := newLoop(t, m, &calls).Run(context.Background(), input("q"))
	if !errors.Is(err, boom) {
		t.Fatalf("error: got = %v, wanted = %v", err, boom)
	}
	if out.Status != react.StatusFailed {
		t.Errorf("status: got = %s, wanted = %s", out.Status, react.StatusFailed)
	}
}

func TestCancellation(t *testing.T) {
	t.Run("before the first turn", func(t *testing.T) {
		var calls atomic.Int32
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out, err := newLoop(t, &modeltest.Scripted{Fallback: modeltest.Text("x")}, &calls).Run(ctx, input("q"))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error: got = %v, wanted = %v", err, context.Canceled)
		}
		if out.Status != react.StatusCancelled || out.Turns != 0 {
			t.Errorf("outcome: got = (%s, %d turns)", out.Status, out.Turns)
		}
	})

	t.Run("between dispatches", func(t *testing.T) {
		var calls atomic.Int32
		ctx, cancel := context.WithCancel(context.Background())
		m := &modeltest.Scripted{Steps: []modeltest.Step{
			func(model.Request) (*model.Reply, error) {
				cancel()
				return &model.Reply{ToolCalls: []toolcall.ToolCall{search("a", "1"), search("b", "2")}}, nil
			},
		}}

		out, err := newLoop(t, m, &calls).Run(ctx, input("q"))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error: got = %v, wanted = %v", err, context.Canceled)
		}
		if out.Status != react.StatusCancelled || calls.Load() != 0 {
			t.Errorf("outcome: got = (%s, %d calls)", out.Status, calls.Load())
		}
	})
}

func TestRequestsCarryPromptsAndTools(t *testing.T) {
	var calls atomic.Int32
	m := &modeltest.Scripted{Steps: []modeltest.Step{modeltest.Text("answer")}}

	_, err := newLoop(t, m, &calls).Run(context.Background(), input("How is the JIT tested"))
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	for _, want := range []string{"search_code", "get_repo_structure", "GitHub search syntax", "Final Answer:"} {
		if !strings.Contains(req.System, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	require.Len(t, req.Messages, 1)
	for _, want := range []string{"How is the JIT tested", "adoptium/TKG", "REPOSITORY STRUCTURE CONTEXT:"} {
		if !strings.Contains(req.Messages[0].Content, want) {
			t.Errorf("user prompt missing %q:\n%s", want, req.Messages[0].Content)
		}
	}
	if len(req.Tools) != 2 {
		t.Errorf("tools: got = %d, wanted = 2", len(req.Tools))
	}
}

func TestNewValidation(t *testing.T) {
	var calls atomic.Int32
	reg := fakeTools(t, &calls)
	m := &modeltest.Scripted{}

	if _, err := react.New(nil, reg); err == nil {
		t.Error("New(nil model): got = nil, wanted error")
	}
	if _, err := react.New(m, nil); err == nil {
		t.Error("New(nil registry): got = nil, wanted error")
	}
	if _, err := react.New(m, reg, react.WithMaxIterations(0)); err == nil {
		t.Error("WithMaxIterations(0): got = nil, wanted error")
	}
	if _, err := react.New(m, reg, react.WithObservationLimit(-1)); err == nil {
		t.Error("WithObservationLimit(-1): got = nil, wanted error")
	}

	loop, err := react.New(m, reg)
	require.NoError(t, err)
	if _, err := loop.Run(context.Background(), react.Input{Question: " "}); !errors.Is(err, react.ErrEmptyQuestion) {
		t.Errorf("Run(blank): got = %v, wanted = %v", err, react.ErrEmptyQuestion)
	}
}
