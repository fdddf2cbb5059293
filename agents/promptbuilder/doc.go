/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder assembles LLM prompts from developer-written templates
and encoded data.

Templates are string literals holding {{name}} placeholders. Developer text is
bound with BindStringLiteral; anything that came from a user or from GitHub is
bound through an encoder (BindXML, BindJSON, BindYAML) so it cannot be mistaken
for instructions. Substitution is a single pass: a bound value that happens to
contain {{other}} is emitted verbatim and never expanded.

	p := promptbuilder.MustNewPrompt(`Question: {{question}}`)
	p, err := p.BindXML("question", Question{Text: userInput})
	if err != nil {
		return err
	}
	text, err := p.Build()

Binding methods return a new Prompt, so a parsed template can be shared across
goroutines and bound per query.
*/
package promptbuilder
