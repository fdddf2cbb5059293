/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudemodel implements model.Model over the Anthropic Messages API.
package claudemodel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"

	"chainguard.dev/repoqa/agents/executor/retry"
	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/toolcall"
)

// DefaultModel is used when WithModel is not given.
const DefaultModel = "claude-sonnet-4-5"

// Option configures a Model.
type Option func(*Model) error

// WithMaxTokens sets the maximum tokens for responses
func WithMaxTokens(tokens int64) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		if tokens > 32000 {
			return fmt.Errorf("max tokens %d exceeds maximum of 32000", tokens)
		}
		m.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the temperature for responses.
// Claude models support temperature values from 0.0 to 1.0.
func WithTemperature(temp float64) Option {
	return func(m *Model) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		m.temperature = temp
		return nil
	}
}

// WithModel allows overriding the model name
func WithModel(name string) Option {
	return func(m *Model) error {
		if !strings.HasPrefix(name, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", name)
		}
		m.name = name
		return nil
	}
}

// WithRetryConfig sets the retry configuration for handling transient Claude API errors.
// This is particularly useful for 429 rate limit and 529 overloaded errors.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.retry = cfg
		return nil
	}
}

// Model streams completions from Claude.
type Model struct {
	client      anthropic.Client
	name        string
	maxTokens   int64
	temperature float64
	retry       retry.RetryConfig
}

var _ model.Model = (*Model)(nil)

// New creates a Model using client.
func New(client anthropic.Client, opts ...Option) (*Model, error) {
	m := &Model{
		client:      client,
		name:        DefaultModel,
		maxTokens:   4096,
		temperature: 0.1,
		retry:       retry.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return m, nil
}

// Name implements model.Model.
func (m *Model) Name() string { return m.name }

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Reply, error) {
	system, messages, err := toMessages(req)
	if err != nil {
		return nil, err
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.name),
		MaxTokens:   m.maxTokens,
		Messages:    messages,
		Tools:       toTools(req.Tools),
		Temperature: anthropic.Float(m.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := retry.RetryWithBackoff(ctx, m.retry, "stream_message", isRetryable, func() (anthropic.Message, error) {
		stream := m.client.Messages.NewStreaming(ctx, params)
		var msg anthropic.Message
		for stream.Next() {
			if err := msg.Accumulate(stream.Current()); err != nil {
				return msg, fmt.Errorf("failed to accumulate event: %w", err)
			}
		}
		return msg, stream.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stream Claude response: %w", err)
	}
	return fromMessage(ctx, message), nil
}

// toMessages converts the conversation, merging consecutive turns of the
// same role since the Messages API requires alternation. Tool results travel
// as user turns.
func toMessages(req model.Request) (string, []anthropic.MessageParam, error) {
	system := []string{}
	if req.System != "" {
		system = append(system, req.System)
	}

	var out []anthropic.MessageParam
	push := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)
		case model.RoleUser:
			push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Args
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			if len(blocks) == 0 {
				return "", nil, errors.New("assistant message has neither text nor tool calls")
			}
			push(anthropic.MessageParamRoleAssistant, blocks...)
		case model.RoleTool:
			push(anthropic.MessageParamRoleUser, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolCallID,
					Content: []anthropic.ToolResultBlockParamContentUnion{{
						OfText: &anthropic.TextBlockParam{Text: msg.Content},
					}},
				},
			})
		default:
			return "", nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return strings.Join(system, "\n\n"), out, nil
}

func toTools(defs []toolcall.Definition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := def.Schema()
		properties := make(map[string]any, schema.Properties.Len())
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			properties[pair.Key] = pair.Value
		}
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: properties,
					Required:   schema.Required,
				},
			},
		})
	}
	return tools
}

func fromMessage(ctx context.Context, message anthropic.Message) *model.Reply {
	reply := &model.Reply{
		Usage: model.Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
		},
	}
	var text []string
	for _, content := range message.Content {
		switch content.Type {
		case "text":
			text = append(text, content.Text)
		case "tool_use":
			args := model.DecodeArgs(string(content.Input))
			if args == nil {
				clog.FromContext(ctx).With("tool", content.Name).Warn("Tool call input is not a JSON object")
			}
			reply.ToolCalls = append(reply.ToolCalls, toolcall.ToolCall{
				ID:   model.CallID(content.ID, content.Name, len(reply.ToolCalls)),
				Name: content.Name,
				Args: args,
			})
		}
	}
	reply.Text = strings.Join(text, "\n")
	return reply
}

// isRetryable reports throttling (429), overload (529) and gateway
// failures (503, 504).
func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case 429, 503, 504, 529:
		return true
	default:
		return false
	}
}
