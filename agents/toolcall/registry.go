/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/xeipuuv/gojsonschema"

	"chainguard.dev/repoqa/agents/agenttrace"
)

// MalformedCallError reports a call naming an unknown tool or carrying
// arguments that do not match the tool's schema. It affects one step only.
type MalformedCallError struct {
	Call       ToolCall
	Violations []string // empty for unknown tools
	Available  []string
}

func (e *MalformedCallError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("unknown tool %q", e.Call.Name)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Call.Name, strings.Join(e.Violations, "; "))
}

// Observation is the corrective message handed back to the model.
func (e *MalformedCallError) Observation() map[string]any {
	if len(e.Violations) == 0 {
		return map[string]any{
			"error":           e.Error(),
			"available_tools": e.Available,
		}
	}
	return map[string]any{
		"error":      fmt.Sprintf("invalid arguments for %s", e.Call.Name),
		"violations": e.Violations,
	}
}

type entry struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// Registry is a closed, immutable set of tools. It is safe for concurrent use.
type Registry struct {
	order   []string
	entries map[string]entry
}

// NewRegistry compiles the schema of every tool. Duplicate names, invalid
// definitions and nil handlers are rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{entries: make(map[string]entry, len(tools))}
	for _, t := range tools {
		if err := t.Def.validate(); err != nil {
			return nil, err
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("tool %s: handler cannot be nil", t.Def.Name)
		}
		if _, dup := r.entries[t.Def.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %s", t.Def.Name)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Def.Schema()))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", t.Def.Name, err)
		}
		r.entries[t.Def.Name] = entry{tool: t, schema: schema}
		r.order = append(r.order, t.Def.Name)
	}
	return r, nil
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].tool.Def)
	}
	return defs
}

// Dispatch validates call and runs its handler. The returned observation is
// always non-nil; a *MalformedCallError accompanies corrective observations.
// trace may be nil.
func (r *Registry) Dispatch(ctx context.Context, call ToolCall, trace *agenttrace.Trace) (map[string]any, error) {
	log := clog.FromContext(ctx).With("tool", call.Name, "call_id", call.ID)

	if call.Args == nil {
		call.Args = map[string]any{}
	}

	e, ok := r.entries[call.Name]
	if !ok {
		mce := &MalformedCallError{Call: call, Available: r.Names()}
		return r.reject(ctx, mce, trace), mce
	}

	result, err := e.schema.Validate(gojsonschema.NewGoLoader(call.Args))
	if err != nil {
		mce := &MalformedCallError{Call: call, Violations: []string{err.Error()}}
		return r.reject(ctx, mce, trace), mce
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			violations = append(violations, re.String())
		}
		mce := &MalformedCallError{Call: call, Violations: violations}
		return r.reject(ctx, mce, trace), mce
	}

	log.Debug("Dispatching tool call")
	var tc *agenttrace.ToolCall
	if trace != nil {
		tc = trace.StartToolCall(call.ID, call.Name, call.Args)
	}
	obs := e.tool.Handler(ctx, call)
	if obs == nil {
		obs = map[string]any{}
	}
	if tc != nil {
		var herr error
		if msg, ok := obs["error"].(string); ok {
			herr = errors.New(msg)
		}
		tc.Complete(obs, herr)
	}
	return obs, nil
}

func (r *Registry) reject(ctx context.Context, mce *MalformedCallError, trace *agenttrace.Trace) map[string]any {
	clog.FromContext(ctx).With("tool", mce.Call.Name, "call_id", mce.Call.ID).
		Warn("Rejected malformed tool call", "error", mce.Error())
	if trace != nil {
		trace.BadToolCall(mce.Call.ID, mce.Call.Name, mce.Call.Args, mce)
	}
	return mce.Observation()
}
