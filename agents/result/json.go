/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ExtractJSON returns the contents of the first ```json fenced block in
// text, or "" when there is none.
func ExtractJSON(text string) string {
	var buf bytes.Buffer
	in := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !in && trimmed == "```json":
			in = true
		case in && trimmed == "```":
			return strings.TrimSpace(buf.String())
		case in:
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
		}
	}
	// An unterminated fence still yields what it holds.
	return strings.TrimSpace(buf.String())
}

// objects decodes every top-level JSON object embedded in text, in order of
// appearance. Text between objects is skipped.
func objects(text string) []json.RawMessage {
	var out []json.RawMessage
	for i := 0; i < len(text); {
		start := strings.IndexByte(text[i:], '{')
		if start < 0 {
			break
		}
		start += i
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			i = start + 1
			continue
		}
		out = append(out, raw)
		i = start + int(dec.InputOffset())
	}
	return out
}
