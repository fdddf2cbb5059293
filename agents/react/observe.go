/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package react

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// DefaultObservationLimit bounds the characters of one observation.
const DefaultObservationLimit = 1500

const keptItems = 3

// renderObservation encodes a tool observation as JSON.
func renderObservation(obs map[string]any) string {
	b, err := json.Marshal(obs)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, "observation could not be encoded: "+err.Error())
	}
	return string(b)
}

// truncate shortens an observation that exceeds limit. Search results keep
// their first few items plus a note; anything else is cut with a marker.
func truncate(obs string, limit int) string {
	if len(obs) <= limit {
		return obs
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(obs), &data); err == nil {
		if items, ok := data["items"].([]any); ok {
			if len(items) > keptItems {
				data["items"] = items[:keptItems]
				data["note"] = fmt.Sprintf("Showing %d of %d total items to save context", keptItems, len(items))
			}
			if b, err := json.MarshalIndent(data, "", "  "); err == nil && len(b) <= limit {
				return string(b)
			}
		}
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(obs[cut]) {
		cut--
	}
	return obs[:cut] + fmt.Sprintf("\n... [truncated, originally %d chars]", len(obs))
}
