/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudemodel

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/go-cmp/cmp"

	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/toolcall"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "non-API error", err: fmt.Errorf("connection refused"), want: false},
		{name: "429 rate limit", err: &anthropic.Error{StatusCode: 429}, want: true},
		{name: "503 unavailable", err: &anthropic.Error{StatusCode: 503}, want: true},
		{name: "504 gateway timeout", err: &anthropic.Error{StatusCode: 504}, want: true},
		{name: "529 overloaded", err: &anthropic.Error{StatusCode: 529}, want: true},
		{name: "wrapped 529", err: fmt.Errorf("stream: %w", &anthropic.Error{StatusCode: 529}), want: true},
		{name: "400 bad request", err: &anthropic.Error{StatusCode: 400}, want: false},
		{name: "401 unauthorized", err: &anthropic.Error{StatusCode: 401}, want: false},
		{name: "500 internal error", err: &anthropic.Error{StatusCode: 500}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v): got = %v, wanted = %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestToMessagesMergesTurns(t *testing.T) {
	system, msgs, err := toMessages(model.Request{
		System: "rules",
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: "more rules"},
			{Role: model.RoleUser, Content: "question"},
			{Role: model.RoleAssistant, Content: "looking", ToolCalls: []toolcall.ToolCall{
				{ID: "toolu_1", Name: "search_code", Args: map[string]any{"query": "a"}},
				{ID: "toolu_2", Name: "search_issues", Args: map[string]any{"query": "b"}},
			}},
			{Role: model.RoleTool, ToolCallID: "toolu_1", Content: "one"},
			{Role: model.RoleTool, ToolCallID: "toolu_2", Content: "two"},
			{Role: model.RoleUser, Content: "keep going"},
		},
	})
	if err != nil {
		t.Fatalf("toMessages: %v", err)
	}
	if want := "rules\n\nmore rules"; system != want {
		t.Errorf("system: got = %q, wanted = %q", system, want)
	}

	type shape struct {
		Role   string
		Blocks int
	}
	var got []shape
	for _, m := range msgs {
		got = append(got, shape{Role: string(m.Role), Blocks: len(m.Content)})
	}
	want := []shape{{"user", 1}, {"assistant", 3}, {"user", 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages (-want +got):\n%s", diff)
	}
	if id := msgs[2].Content[1].OfToolResult.ToolUseID; id != "toolu_2" {
		t.Errorf("second tool result: got = %q, wanted = toolu_2", id)
	}
}

func TestToMessagesRejectsEmptyAssistant(t *testing.T) {
	if _, _, err := toMessages(model.Request{Messages: []model.Message{{Role: model.RoleAssistant}}}); err == nil {
		t.Error("toMessages: got = nil, wanted error")
	}
}

func TestToTools(t *testing.T) {
	tools := toTools([]toolcall.Definition{{
		Name:        "get_file_contents",
		Description: "Fetch a file",
		Parameters: []toolcall.Parameter{
			{Name: "repo", Type: "string", Description: "owner/name", Required: true},
			{Name: "path", Type: "string", Description: "file path", Required: true},
			{Name: "branch", Type: "string", Description: "ref"},
		},
	}})
	if len(tools) != 1 {
		t.Fatalf("tools: got = %d, wanted = 1", len(tools))
	}
	tool := tools[0].OfTool
	if diff := cmp.Diff([]string{"repo", "path"}, tool.InputSchema.Required); diff != "" {
		t.Errorf("required (-want +got):\n%s", diff)
	}
	props, ok := tool.InputSchema.Properties.(map[string]any)
	if !ok || len(props) != 3 {
		t.Errorf("properties: got = %v, wanted 3 entries", tool.InputSchema.Properties)
	}
}

func TestFromMessage(t *testing.T) {
	var msg anthropic.Message
	raw := `{
	  "id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
	  "content": [
	    {"type": "text", "text": "Searching."},
	    {"type": "tool_use", "id": "toolu_1", "name": "search_code", "input": {"query": "TKG"}},
	    {"type": "tool_use", "id": "toolu_2", "name": "search_code", "input": "oops"}
	  ],
	  "stop_reason": "tool_use",
	  "usage": {"input_tokens": 30, "output_tokens": 7}
	}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := fromMessage(context.Background(), msg)
	want := &model.Reply{
		Text: "Searching.",
		ToolCalls: []toolcall.ToolCall{
			{ID: "toolu_1", Name: "search_code", Args: map[string]any{"query": "TKG"}},
			{ID: "toolu_2", Name: "search_code"},
		},
		Usage: model.Usage{PromptTokens: 30, CompletionTokens: 7},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reply (-want +got):\n%s", diff)
	}
}

func TestWithModel(t *testing.T) {
	if _, err := New(anthropic.NewClient(), WithModel("gpt-4o")); err == nil {
		t.Error("WithModel(gpt-4o): got = nil, wanted error")
	}
	m, err := New(anthropic.NewClient(), WithModel("claude-opus-4-1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Name() != "claude-opus-4-1" {
		t.Errorf("Name: got = %q, wanted = claude-opus-4-1", m.Name())
	}
}
