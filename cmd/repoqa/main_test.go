/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chainguard.dev/repoqa/ghclient"
	"chainguard.dev/repoqa/repocontext"
)

func TestSummaryRow(t *testing.T) {
	entries := []ghclient.TreeEntry{
		{Path: "README.md", Type: "blob"},
		{Path: "pom.xml", Type: "blob"},
		{Path: "src", Type: "tree"},
		{Path: "src/A.java", Type: "blob"},
		{Path: "src/B.java", Type: "blob"},
	}

	tests := []struct {
		name string
		s    *repocontext.Summary
		want []string
	}{{
		name: "loaded",
		s:    repocontext.Summarize("adoptium/STF", entries, false),
		want: []string{"adoptium/STF", "4", "1", "java (2), md (1), xml (1)", "README.md, pom.xml", "ok"},
	}, {
		name: "truncated",
		s:    repocontext.Summarize("eclipse-openj9/openj9", entries, true),
		want: []string{"eclipse-openj9/openj9", "4", "1", "java (2), md (1), xml (1)", "README.md, pom.xml", "truncated"},
	}, {
		name: "failed",
		s:    repocontext.Failed("adoptium/gone", errors.New("not found")),
		want: []string{"adoptium/gone", "-", "-", "-", "-", "error: not found"},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, summaryRow(tt.s)); diff != "" {
				t.Errorf("row (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	err := writeSummaries(&buf, []*repocontext.Summary{
		repocontext.Summarize("adoptium/TKG", []ghclient.TreeEntry{{Path: "Makefile", Type: "blob"}}, false),
	})
	if err != nil {
		t.Fatalf("writeSummaries: %v", err)
	}
	for _, want := range []string{"Repository", "adoptium/TKG", "Makefile"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestSetupLogging(t *testing.T) {
	if _, err := setupLogging(context.Background(), "debug"); err != nil {
		t.Errorf("setupLogging(debug): %v", err)
	}
	if _, err := setupLogging(context.Background(), "loud"); err == nil {
		t.Error("setupLogging(loud): got = nil, wanted error")
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	// cobra sorts subcommands by name.
	if diff := cmp.Diff([]string{"ask", "mcp", "summary"}, names); diff != "" {
		t.Errorf("subcommands (-want +got):\n%s", diff)
	}
	for _, flag := range []string{"repo", "max-iterations", "metrics-port", "log-level"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}
