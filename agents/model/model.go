/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package model is the boundary between the agent loop and function-calling
// LLM providers. Providers live in subpackages; modeltest holds a scripted
// stand-in for tests.
package model

import (
	"context"
	"encoding/json"
	"fmt"

	"chainguard.dev/repoqa/agents/toolcall"
)

// Role of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// ToolCalls are the calls an assistant message proposed.
	ToolCalls []toolcall.ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID and ToolName tie a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
}

// Request is one completion request.
type Request struct {
	System   string
	Messages []Message // without the system message
	Tools    []toolcall.Definition
}

// Usage is the token accounting for one completion.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Reply is either text, tool calls, or both.
type Reply struct {
	Text      string
	ToolCalls []toolcall.ToolCall
	Usage     Usage
}

// Model is a function-calling completion endpoint. Implementations retry
// provider throttling themselves; a returned error is final.
type Model interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
	// Name identifies the model in logs and metrics.
	Name() string
}

// EncodeArgs renders tool call arguments as a JSON object.
func EncodeArgs(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode tool arguments: %w", err)
	}
	return string(b), nil
}

// DecodeArgs parses a JSON object of tool arguments. Anything that is not
// an object yields nil, which schema validation reports to the model.
func DecodeArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil
	}
	return args
}

// CallID returns id, or a deterministic stand-in for providers that omit
// call identifiers.
func CallID(id, name string, index int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s_%d", name, index)
}
