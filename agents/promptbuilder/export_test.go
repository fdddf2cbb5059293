/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// NewPromptFromString lets table tests parse templates held in variables.
func NewPromptFromString(template string) (*Prompt, error) {
	return NewPrompt(stringLiteral(template))
}
