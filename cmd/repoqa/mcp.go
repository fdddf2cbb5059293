/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/spf13/cobra"

	"chainguard.dev/repoqa/mcpserver"
)

func newMCPCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the query tool over MCP on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			agent, err := newAgent(ctx, f)
			if err != nil {
				return err
			}
			srv, err := mcpserver.New(agent, mcpserver.Config{Name: "repoqa", Version: version})
			if err != nil {
				return err
			}
			return srv.ServeStdio(ctx)
		},
	}
}
