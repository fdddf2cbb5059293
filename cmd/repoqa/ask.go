/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(f *flags) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agent, err := newAgent(ctx, f)
			if err != nil {
				return err
			}

			res, err := agent.Query(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Answer)

			if !res.Finished() {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nNote: stopped after %d steps without a final answer.\n", res.Iterations)
			}
			if verbose {
				states := make([]string, 0, len(res.States))
				for _, s := range res.States {
					states = append(states, string(s))
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "\nquery %s: status=%s steps=%d turns=%d model=%s\npath: %s\n",
					res.QueryID, res.Status, res.Iterations, res.Turns, agent.Model(), strings.Join(states, " -> "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print query statistics to stderr")
	return cmd
}
