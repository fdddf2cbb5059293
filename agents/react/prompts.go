/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package react

import (
	"fmt"
	"strings"

	"chainguard.dev/repoqa/agents/promptbuilder"
	"chainguard.dev/repoqa/agents/toolcall"
)

const systemTemplate = `You are an autonomous agent that answers questions about GitHub repositories using the ReAct (Reasoning + Acting) pattern. You perform every action yourself.

You have access to these tools:
{{tools}}

REPOSITORY CONTEXT:
The request includes a summary of each repository's structure: top-level directories, file types by count, and key files in the root. Use it to write precise queries instead of generic ones.

GitHub search syntax:
- Code search qualifiers: 'language:', 'extension:', 'path:', 'filename:'
- Issue search qualifiers: 'is:issue', 'is:pr', 'state:open', 'label:'
- Terms separated by spaces are combined with AND; use OR for alternatives

How to work:
- Start with a Thought explaining what information you need and which tool provides it.
- Call a tool. If you cannot call tools natively, write the action as JSON on its own line after "Action:":
  {"tool": "search_code", "parameters": {"query": "junit language:java", "repos": ["adoptium/aqa-tests"]}}
- After each Observation, either take another action or finish with "Final Answer:" followed by your complete answer.
- Use get_repo_structure only when the provided context is not detailed enough.
- When you find a relevant file, read it with get_file_contents. Never assume or invent file contents.
- Use search_issues to find discussions, problems and design decisions.

YOUR MISSION:
- The user is waiting for your answer and will not run anything themselves.
- Never tell the user to search, check or look at something. Do it yourself with your tools.
- Your Final Answer must be a complete solution, not a list of things for the user to do.
- Be persistent: use several searches when one is not enough.`

const userTemplate = `Answer the question in the request below.

{{request}}

Use the repository structure context to formulate accurate search queries:
- Use 'path:' to search in directories listed in the context
- Use 'extension:' or 'language:' to search specific file types
- Use 'filename:' to search for files listed in the context

Start with your Thought, then take an action.`

const observationTemplate = `Observation: %s

Based on this observation, provide either:
1. Another Thought and Action to gather more information
2. Final Answer: [your complete answer if you have enough information]`

const nudgeTemplate = `I didn't find a valid action in your response. Please provide EITHER:

1. A tool call, or a JSON action on its own line after "Action:", for example:
   {"tool": "search_code", "parameters": {"query": "your search query", "repos": %s}}
   {"tool": "get_repo_structure", "parameters": {"repo": "owner/repo"}}

OR

2. Final Answer: [your answer if you have enough information]`

type toolSummary struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Parameters  []string `yaml:"parameters,omitempty"`
}

func systemPrompt(defs []toolcall.Definition) (string, error) {
	tools := make([]toolSummary, 0, len(defs))
	for _, d := range defs {
		ts := toolSummary{Name: d.Name, Description: d.Description}
		for _, p := range d.Parameters {
			opt := ""
			if !p.Required {
				opt = ", optional"
			}
			ts.Parameters = append(ts.Parameters, fmt.Sprintf("%s (%s%s): %s", p.Name, p.Type, opt, p.Description))
		}
		tools = append(tools, ts)
	}

	p, err := systemPromptTemplate.BindYAML("tools", tools)
	if err != nil {
		return "", err
	}
	return p.Build()
}

var (
	systemPromptTemplate = promptbuilder.MustNewPrompt(systemTemplate)
	userPromptTemplate   = promptbuilder.MustNewPrompt(userTemplate)
)

type request struct {
	Question          string   `yaml:"question"`
	Repositories      []string `yaml:"available_repositories"`
	RepositoryContext string   `yaml:"repository_context,omitempty"`
}

func userPrompt(in Input) (string, error) {
	p, err := userPromptTemplate.BindYAML("request", request{
		Question:          in.Question,
		Repositories:      in.Repositories,
		RepositoryContext: in.RepositoryContext,
	})
	if err != nil {
		return "", err
	}
	return p.Build()
}

func observationMessage(obs string) string {
	return fmt.Sprintf(observationTemplate, obs)
}

func nudgeMessage(repos []string) string {
	quoted := make([]string, len(repos))
	for i, r := range repos {
		quoted[i] = fmt.Sprintf("%q", r)
	}
	return fmt.Sprintf(nudgeTemplate, "["+strings.Join(quoted, ", ")+"]")
}

func budgetAnswer(limit int, lastObservation string) string {
	answer := fmt.Sprintf("I've reached the maximum number of reasoning steps (%d). Based on my investigation, I was unable to gather sufficient information to provide a complete answer to your question. Please try rephrasing your question or being more specific about what you'd like to know.", limit)
	if lastObservation != "" {
		answer += "\n\nThe last information I gathered was:\n" + lastObservation
	}
	return answer
}
