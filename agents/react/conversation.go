/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package react

import (
	"slices"

	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/toolcall"
)

// Conversation is the ordered message history of one query. The first
// message is always the system prompt.
type Conversation struct {
	messages []model.Message
}

func newConversation(system, user string) *Conversation {
	return &Conversation{messages: []model.Message{
		{Role: model.RoleSystem, Content: system},
		{Role: model.RoleUser, Content: user},
	}}
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []model.Message {
	out := make([]model.Message, len(c.messages))
	for i, m := range c.messages {
		m.ToolCalls = slices.Clone(m.ToolCalls)
		out[i] = m
	}
	return out
}

// Len is the number of messages, system prompt included.
func (c *Conversation) Len() int { return len(c.messages) }

func (c *Conversation) append(m model.Message) {
	c.messages = append(c.messages, m)
}

// request renders the history for the next model turn.
func (c *Conversation) request(tools []toolcall.Definition) model.Request {
	msgs := c.Messages()
	return model.Request{
		System:   msgs[0].Content,
		Messages: msgs[1:],
		Tools:    tools,
	}
}
