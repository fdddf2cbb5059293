/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ToolCall is a provider-independent representation of a tool call.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Definition describes a tool's schema (name, description, parameters).
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Parameter describes a single tool parameter.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "boolean", "number", "array"
	Items       string // element type when Type is "array"
	Description string
	Required    bool
}

// Handler runs a validated call and returns the observation for the model.
// Failures are reported inside the observation, not as Go errors.
type Handler func(ctx context.Context, call ToolCall) map[string]any

// Tool defines a tool once with a single handler that works with any provider.
type Tool struct {
	Def     Definition
	Handler Handler
}

// Schema returns the JSON schema for the tool's arguments object.
// Unknown properties are rejected.
func (d Definition) Schema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	var required []string
	for _, p := range d.Parameters {
		ps := &jsonschema.Schema{
			Type:        p.Type,
			Description: p.Description,
		}
		if p.Type == "array" {
			items := p.Items
			if items == "" {
				items = "string"
			}
			ps.Items = &jsonschema.Schema{Type: items}
		}
		props.Set(p.Name, ps)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// SchemaMap returns Schema as a generic JSON object, the shape SDKs accept.
func (d Definition) SchemaMap() (map[string]any, error) {
	b, err := json.Marshal(d.Schema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", d.Name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal schema for %s: %w", d.Name, err)
	}
	return m, nil
}

func (d Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if d.Description == "" {
		return fmt.Errorf("tool %s: description cannot be empty", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("tool %s: parameter name cannot be empty", d.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("tool %s: duplicate parameter %s", d.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		switch p.Type {
		case "string", "integer", "boolean", "number", "array":
		default:
			return fmt.Errorf("tool %s: invalid type %q for parameter %s", d.Name, p.Type, p.Name)
		}
	}
	return nil
}
