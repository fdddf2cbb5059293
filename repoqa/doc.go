/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package repoqa wires the question answering agent together: the GitHub
// client, the repository structure cache, the repository tools, an LLM
// provider and the ReAct loop.
//
// An Agent is built once per repository set and may serve concurrent
// queries. The structure cache is loaded at construction and never
// refreshed; build a new Agent to pick up a different set.
//
//	cfg, err := repoqa.LoadConfig(ctx)
//	if err != nil {
//		return err
//	}
//	agent, err := repoqa.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	res, err := agent.Query(ctx, "How are sanity tests grouped in aqa-tests?")
package repoqa
