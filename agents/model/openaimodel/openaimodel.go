/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaimodel implements model.Model over OpenAI-compatible chat
// completion endpoints. The default endpoint is GitHub Models, which accepts
// a GitHub token as the API key.
package openaimodel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"chainguard.dev/repoqa/agents/executor/retry"
	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/toolcall"
)

const (
	// DefaultBaseURL is the GitHub Models inference endpoint.
	DefaultBaseURL = "https://models.github.ai/inference"
	// DefaultModel is a tool-calling capable model served by GitHub Models.
	DefaultModel = "openai/gpt-4o-mini"

	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

// Option configures a Model.
type Option func(*Model) error

// WithBaseURL overrides the endpoint.
func WithBaseURL(url string) Option {
	return func(m *Model) error {
		if url == "" {
			return errors.New("base URL cannot be empty")
		}
		m.baseURL = url
		return nil
	}
}

// WithModel overrides the model name.
func WithModel(name string) Option {
	return func(m *Model) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("model name cannot be empty")
		}
		m.name = name
		return nil
	}
}

// WithTemperature sets the sampling temperature, 0.0 to 2.0.
func WithTemperature(temp float64) Option {
	return func(m *Model) error {
		if temp < 0 || temp > 2 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		m.temperature = temp
		return nil
	}
}

// WithMaxTokens caps each completion.
func WithMaxTokens(tokens int64) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		m.maxTokens = tokens
		return nil
	}
}

// WithRetryConfig sets the retry configuration for throttled or failing calls.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
		m.retry = cfg
		return nil
	}
}

// Model is an OpenAI chat completion client. Safe for concurrent use.
type Model struct {
	client      openai.Client
	baseURL     string
	name        string
	temperature float64
	maxTokens   int64
	retry       retry.RetryConfig
}

var _ model.Model = (*Model)(nil)

// New creates a Model authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Model, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	m := &Model{
		baseURL:     DefaultBaseURL,
		name:        DefaultModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		retry:       retry.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	m.client = openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(m.baseURL),
		// Retries are ours.
		option.WithMaxRetries(0),
	)
	return m, nil
}

// Name implements model.Model.
func (m *Model) Name() string { return m.name }

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Reply, error) {
	messages, err := toMessages(req)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(m.name),
		Messages:    messages,
		Temperature: openai.Float(m.temperature),
		MaxTokens:   openai.Int(m.maxTokens),
	}
	if len(req.Tools) > 0 {
		tools, err := toTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
		params.ParallelToolCalls = openai.Bool(false)
	}

	response, err := retry.RetryWithBackoff(ctx, m.retry, "chat_completion", isRetryable, func() (*openai.ChatCompletion, error) {
		return m.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion with %s: %w", m.name, err)
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("no response choices returned")
	}

	msg := response.Choices[0].Message
	reply := &model.Reply{
		Text: msg.Content,
		Usage: model.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
		},
	}
	for i, tc := range msg.ToolCalls {
		args := model.DecodeArgs(tc.Function.Arguments)
		if args == nil {
			clog.FromContext(ctx).With("tool", tc.Function.Name).Warn("Tool call arguments are not a JSON object")
		}
		reply.ToolCalls = append(reply.ToolCalls, toolcall.ToolCall{
			ID:   model.CallID(tc.ID, tc.Function.Name, i),
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return reply, nil
}

func toMessages(req model.Request) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case model.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case model.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				args, err := model.EncodeArgs(tc.Args)
				if err != nil {
					return nil, err
				}
				calls = append(calls, openai.ChatCompletionMessageToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			assistant := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: calls,
			}
			messages = append(messages, assistant.ToParam())
		case model.RoleTool:
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					ToolCallID: msg.ToolCallID,
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return messages, nil
}

func toTools(defs []toolcall.Definition) ([]openai.ChatCompletionToolParam, error) {
	tools := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		schema, err := def.SchemaMap()
		if err != nil {
			return nil, err
		}
		tools = append(tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(schema),
			},
		})
	}
	return tools, nil
}

// isRetryable reports rate limits and server side failures.
func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
