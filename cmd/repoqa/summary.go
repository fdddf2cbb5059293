/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"chainguard.dev/repoqa/repocontext"
)

func newSummaryCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Load and print the repository structure summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := newAgent(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeSummaries(cmd.OutOrStdout(), agent.Summaries())
		},
	}
}

var summaryHeaders = []string{"Repository", "Files", "Dirs", "Top types", "Key files", "Status"}

// writeSummaries renders one markdown table row per repository.
func writeSummaries(w io.Writer, sums []*repocontext.Summary) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Behavior: tw.Behavior{TrimSpace: tw.Off},
		}),
		tablewriter.WithHeader(summaryHeaders),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)

	for _, s := range sums {
		if err := table.Append(summaryRow(s)); err != nil {
			return fmt.Errorf("append %s: %w", s.Repo(), err)
		}
	}
	return table.Render()
}

func summaryRow(s *repocontext.Summary) []string {
	if !s.OK() {
		return []string{s.Repo(), "-", "-", "-", "-", "error: " + s.Err()}
	}
	status := "ok"
	if s.Truncated() {
		status = "truncated"
	}
	exts := s.Extensions()
	var types []string
	for _, e := range s.TopExtensions(3) {
		types = append(types, fmt.Sprintf("%s (%d)", e, exts[e]))
	}
	return []string{
		s.Repo(),
		strconv.Itoa(s.Files()),
		strconv.Itoa(s.Directories()),
		strings.Join(types, ", "),
		strings.Join(s.KeyFiles(), ", "),
		status,
	}
}
