/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result interprets free text produced by a model in a ReAct loop.

Models that do not use native function calling answer in the text format
taught by the system prompt:

	Thought: I should look at the build files.

	Action:
	{"tool": "get_file_contents", "parameters": {"repo": "adoptium/TKG", "path": "build.xml"}}

or finish with

	Final Answer: TKG drives the tests through build.xml.

FinalAnswer recognizes the second form and ExtractAction the first. A final
answer always wins: JSON that appears in an answer is never an action.

JSON is found inside ```json fences, after an "Action:" keyword, or anywhere
in the text, in that order. All functions are pure and safe for concurrent
use.
*/
package result
