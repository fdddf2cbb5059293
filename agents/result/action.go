/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"encoding/json"
	"regexp"
	"strings"
)

const actionMarker = "Action:"

// finalMarker is matched against the text as given; lowercasing first would
// shift offsets for runes whose lowercase form has a different width.
var finalMarker = regexp.MustCompile(`(?i)final answer:`)

// Action is a tool request written inline in model text.
type Action struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// FinalAnswer reports whether text carries a final answer marker and returns
// the text after the last one. The marker is matched case-insensitively.
func FinalAnswer(text string) (string, bool) {
	matches := finalMarker.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	return strings.TrimSpace(text[matches[len(matches)-1][1]:]), true
}

// ExtractAction finds the first inline action in text. Text containing a
// final answer never yields an action.
func ExtractAction(text string) (Action, bool) {
	if _, ok := FinalAnswer(text); ok {
		return Action{}, false
	}

	var candidates []string
	if fenced := ExtractJSON(text); fenced != "" {
		candidates = append(candidates, fenced)
	}
	if idx := strings.Index(text, actionMarker); idx >= 0 {
		candidates = append(candidates, text[idx+len(actionMarker):])
	}
	candidates = append(candidates, text)

	for _, c := range candidates {
		for _, raw := range objects(c) {
			if a, ok := asAction(raw); ok {
				return a, true
			}
		}
	}
	return Action{}, false
}

func asAction(raw json.RawMessage) (Action, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Action{}, false
	}
	if _, ok := probe["tool"]; !ok {
		return Action{}, false
	}
	if _, ok := probe["parameters"]; !ok {
		return Action{}, false
	}
	var a Action
	if err := json.Unmarshal(raw, &a); err != nil || a.Tool == "" {
		return Action{}, false
	}
	if a.Parameters == nil {
		a.Parameters = map[string]any{}
	}
	return a, true
}
