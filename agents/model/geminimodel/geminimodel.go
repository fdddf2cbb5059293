/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package geminimodel implements model.Model over the Gemini API.
package geminimodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"

	"chainguard.dev/repoqa/agents/executor/retry"
	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/toolcall"
)

// DefaultModel is used when WithModel is not given.
const DefaultModel = "gemini-2.5-flash"

// Option configures a Model.
type Option func(*Model) error

// WithModel sets the model to use for generation
func WithModel(name string) Option {
	return func(m *Model) error {
		if !strings.HasPrefix(name, "gemini-") {
			return fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", name)
		}
		m.name = name
		return nil
	}
}

// WithTemperature sets the temperature for generation.
// Gemini models support temperature values from 0.0 to 2.0.
func WithTemperature(temperature float32) Option {
	return func(m *Model) error {
		if temperature < 0.0 || temperature > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temperature)
		}
		m.temperature = temperature
		return nil
	}
}

// WithMaxOutputTokens sets the maximum output tokens for generation
func WithMaxOutputTokens(tokens int32) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		if tokens > 32768 {
			return fmt.Errorf("max output tokens %d exceeds maximum of 32768", tokens)
		}
		m.maxOutputTokens = tokens
		return nil
	}
}

// WithRetryConfig sets the retry configuration for quota and overload errors.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.retry = cfg
		return nil
	}
}

// Model generates content with Gemini.
type Model struct {
	client          *genai.Client
	name            string
	temperature     float32
	maxOutputTokens int32
	retry           retry.RetryConfig
}

var _ model.Model = (*Model)(nil)

// New creates a Model using client.
func New(client *genai.Client, opts ...Option) (*Model, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	m := &Model{
		client:          client,
		name:            DefaultModel,
		temperature:     0.1,
		maxOutputTokens: 8192,
		retry:           retry.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return m, nil
}

// NewClient creates a Gemini API client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// Name implements model.Model.
func (m *Model) Name() string { return m.name }

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Reply, error) {
	contents, system, err := toContents(req)
	if err != nil {
		return nil, err
	}
	config := &genai.GenerateContentConfig{
		Temperature:     ptr(m.temperature),
		MaxOutputTokens: m.maxOutputTokens,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(req.Tools)}}
	}

	response, err := retry.RetryWithBackoff(ctx, m.retry, "generate_content", isRetryable, func() (*genai.GenerateContentResponse, error) {
		return m.client.Models.GenerateContent(ctx, m.name, contents, config)
	})
	if err != nil {
		return nil, fmt.Errorf("generate content with %s: %w", m.name, err)
	}
	return fromResponse(ctx, response)
}

func toContents(req model.Request) ([]*genai.Content, string, error) {
	system := []string{}
	if req.System != "" {
		system = append(system, req.System)
	}

	var out []*genai.Content
	push := func(role string, parts ...*genai.Part) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)
		case model.RoleUser:
			push(genai.RoleUser, &genai.Part{Text: msg.Content})
		case model.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Args,
				}})
			}
			if len(parts) == 0 {
				return nil, "", errors.New("assistant message has neither text nor tool calls")
			}
			push(genai.RoleModel, parts...)
		case model.RoleTool:
			push(genai.RoleUser, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.ToolName,
				Response: responseObject(msg.Content),
			}})
		default:
			return nil, "", fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return out, strings.Join(system, "\n\n"), nil
}

// responseObject turns an observation back into the object FunctionResponse
// requires. Non-object observations are wrapped under "output".
func responseObject(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"output": content}
}

func toDeclarations(defs []toolcall.Definition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(def.Parameters)),
		}
		for _, p := range def.Parameters {
			ps := &genai.Schema{Type: schemaType(p.Type), Description: p.Description}
			if p.Type == "array" {
				items := p.Items
				if items == "" {
					items = "string"
				}
				ps.Items = &genai.Schema{Type: schemaType(items)}
			}
			schema.Properties[p.Name] = ps
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  schema,
		})
	}
	return decls
}

func ptr[T any](v T) *T {
	return &v
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func fromResponse(ctx context.Context, response *genai.GenerateContentResponse) (*model.Reply, error) {
	if response == nil || len(response.Candidates) == 0 {
		return nil, errors.New("no content generated - no candidates")
	}
	reply := &model.Reply{}
	if u := response.UsageMetadata; u != nil {
		reply.Usage = model.Usage{
			PromptTokens:     int64(u.PromptTokenCount),
			CompletionTokens: int64(u.CandidatesTokenCount),
		}
	}

	candidate := response.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonMalformedFunctionCall {
		// Surface as text so the loop answers with its corrective prompt.
		clog.FromContext(ctx).With("finish_message", candidate.FinishMessage).Warn("Model attempted a malformed function call")
		return reply, nil
	}
	if candidate.Content == nil {
		return nil, errors.New("no content generated - candidate content is nil")
	}

	var text []string
	for _, part := range candidate.Content.Parts {
		switch {
		case part.Thought:
		case part.FunctionCall != nil:
			reply.ToolCalls = append(reply.ToolCalls, toolcall.ToolCall{
				ID:   model.CallID(part.FunctionCall.ID, part.FunctionCall.Name, len(reply.ToolCalls)),
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		case part.Text != "":
			text = append(text, part.Text)
		}
	}
	reply.Text = strings.Join(text, "\n")
	return reply, nil
}

// isRetryable matches quota, overload and server errors by message, since
// the Gemini API does not expose a typed status on every path.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"Resource exhausted",
		"RESOURCE_EXHAUSTED",
		"429",
		"rate limit",
		"quota exceeded",
		"Overloaded",
		"503",
		"Internal error",
		"server error",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
