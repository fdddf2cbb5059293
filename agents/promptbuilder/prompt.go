/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// stringLiteral only accepts untyped string constants from callers outside
// this package, which keeps runtime data out of templates.
type stringLiteral string

// render produces the text substituted for one placeholder.
type render func() (string, error)

// Prompt is a parsed template plus the values bound so far.
type Prompt struct {
	template string
	bound    map[string]render // nil value: placeholder not yet bound
}

// NewPrompt parses template and records its placeholders.
func NewPrompt(template stringLiteral) (*Prompt, error) {
	bound := make(map[string]render)
	if err := scan(string(template), func(name string) error {
		bound[name] = nil
		return nil
	}); err != nil {
		return nil, err
	}
	return &Prompt{template: string(template), bound: bound}, nil
}

// Placeholders returns the set of placeholder names in the template.
func (p *Prompt) Placeholders() map[string]struct{} {
	names := make(map[string]struct{}, len(p.bound))
	for name := range p.bound {
		names[name] = struct{}{}
	}
	return names
}

func (p *Prompt) with(name string, r render) (*Prompt, error) {
	prev, ok := p.bound[name]
	if !ok {
		return nil, fmt.Errorf("binding %q not found in template", name)
	}
	if prev != nil {
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	np := &Prompt{template: p.template, bound: maps.Clone(p.bound)}
	np.bound[name] = r
	return np, nil
}

// BindStringLiteral binds developer text to a placeholder.
func (p *Prompt) BindStringLiteral(name string, value stringLiteral) (*Prompt, error) {
	return p.with(name, func() (string, error) { return string(value), nil })
}

// BindXML binds data encoded with encoding/xml.
func (p *Prompt) BindXML(name string, data any) (*Prompt, error) {
	return p.with(name, func() (string, error) {
		b, err := xml.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal XML: %w", err)
		}
		return string(b), nil
	})
}

// BindJSON binds data encoded as indented JSON.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	return p.with(name, func() (string, error) {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(b), nil
	})
}

// BindYAML binds data encoded as YAML.
func (p *Prompt) BindYAML(name string, data any) (*Prompt, error) {
	return p.with(name, func() (string, error) {
		b, err := yaml.Marshal(data)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return string(b), nil
	})
}

// Build renders the prompt. Every placeholder must be bound.
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bound))
	for name, r := range p.bound {
		if r == nil {
			return "", fmt.Errorf("unbound placeholder: %s", name)
		}
		v, err := r()
		if err != nil {
			return "", fmt.Errorf("binding %q: %w", name, err)
		}
		values[name] = v
	}
	return substitute(p.template, values)
}
