/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repotools_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/model/modeltest"
	"chainguard.dev/repoqa/agents/react"
	"chainguard.dev/repoqa/agents/toolcall"
	"chainguard.dev/repoqa/ghclient"
	"chainguard.dev/repoqa/repocontext"
	"chainguard.dev/repoqa/repotools"
)

var tkgEntries = []ghclient.TreeEntry{
	{Path: "README.md", Type: "blob"},
	{Path: "src", Type: "tree"},
	{Path: "src/Main.java", Type: "blob"},
	{Path: "src/Util.java", Type: "blob"},
}

func testCache() *repocontext.Cache {
	return repocontext.NewCache(
		repocontext.Summarize("adoptium/TKG", tkgEntries, false),
		repocontext.Failed("adoptium/STF", errors.New("boom")),
	)
}

// fake records the repositories each search was scoped to.
type fake struct {
	searched  [][]string
	treeCalls int
	err       error
}

func (f *fake) callbacks() repotools.Callbacks {
	return repotools.Callbacks{
		SearchCode: func(_ context.Context, repos []ghclient.RepoID, query string) (*ghclient.CodeResults, error) {
			f.record(repos)
			if f.err != nil {
				return nil, f.err
			}
			return &ghclient.CodeResults{
				Query: query,
				Total: 1,
				Items: []ghclient.CodeItem{{Name: "Main.java", Path: "src/Main.java", Repository: "adoptium/TKG"}},
			}, nil
		},
		SearchIssues: func(_ context.Context, repos []ghclient.RepoID, query string) (*ghclient.IssueResults, error) {
			f.record(repos)
			if f.err != nil {
				return nil, f.err
			}
			return &ghclient.IssueResults{Query: query, Items: []ghclient.IssueItem{}}, nil
		},
		Tree: func(_ context.Context, repo ghclient.RepoID, ref string) (*ghclient.Tree, error) {
			f.treeCalls++
			if f.err != nil {
				return nil, f.err
			}
			if ref == "" {
				ref = "master"
			}
			return &ghclient.Tree{Repo: repo, Ref: ref, Entries: tkgEntries}, nil
		},
		FileContents: func(_ context.Context, repo ghclient.RepoID, path, ref string) (*ghclient.File, error) {
			if f.err != nil {
				return nil, f.err
			}
			return &ghclient.File{Repository: repo.String(), Path: path, Ref: ref, Content: "# TKG"}, nil
		},
	}
}

func (f *fake) record(repos []ghclient.RepoID) {
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.String())
	}
	f.searched = append(f.searched, names)
}

func dispatch(t *testing.T, reg *toolcall.Registry, name string, args map[string]any) map[string]any {
	t.Helper()
	obs, err := reg.Dispatch(context.Background(), toolcall.ToolCall{ID: "call_1", Name: name, Args: args}, nil)
	require.NoError(t, err)
	return obs
}

func TestNewRegistry(t *testing.T) {
	f := &fake{}
	reg, err := repotools.NewRegistry(f.callbacks(), testCache())
	require.NoError(t, err)
	if diff := cmp.Diff(repotools.Names, reg.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}

	cb := f.callbacks()
	cb.Tree = nil
	if _, err := repotools.NewRegistry(cb, testCache()); err == nil || !strings.Contains(err.Error(), "Tree") {
		t.Errorf("missing callback: got = %v, wanted error naming Tree", err)
	}
	if _, err := repotools.NewRegistry(f.callbacks(), nil); err == nil {
		t.Error("nil cache: got = nil, wanted error")
	}
}

func TestSearchScope(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    []string
		wantErr string
	}{{
		name: "defaults to configured repositories",
		args: map[string]any{"query": "junit"},
		want: []string{"adoptium/TKG", "adoptium/STF"},
	}, {
		name: "explicit subset",
		args: map[string]any{"query": "junit", "repos": []any{"adoptium/STF"}},
		want: []string{"adoptium/STF"},
	}, {
		name:    "unconfigured repository",
		args:    map[string]any{"query": "junit", "repos": []any{"torvalds/linux"}},
		wantErr: "repository torvalds/linux is not available",
	}, {
		name:    "malformed repository",
		args:    map[string]any{"query": "junit", "repos": []any{"linux"}},
		wantErr: "must be in format owner/repo",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fake{}
			reg, err := repotools.NewRegistry(f.callbacks(), testCache())
			require.NoError(t, err)

			obs := dispatch(t, reg, repotools.SearchCode, tt.args)
			if tt.wantErr != "" {
				msg, _ := obs["error"].(string)
				if !strings.Contains(msg, tt.wantErr) {
					t.Errorf("error: got = %q, wanted substring %q", msg, tt.wantErr)
				}
				if len(f.searched) != 0 {
					t.Errorf("search ran for a rejected scope: %v", f.searched)
				}
				return
			}
			require.Len(t, f.searched, 1)
			if diff := cmp.Diff(tt.want, f.searched[0]); diff != "" {
				t.Errorf("scope (-want +got):\n%s", diff)
			}
			if obs["total_count"] != 1 {
				t.Errorf("total_count: got = %v, wanted = 1", obs["total_count"])
			}
		})
	}
}

func TestSearchFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		tool     string
		wantKind string
	}{{
		name: "not found is an empty result",
		err:  &ghclient.Error{Op: "search_code", Kind: ghclient.ErrNotFound, Err: errors.New("422")},
		tool: repotools.SearchCode,
	}, {
		name:     "rate limit",
		err:      &ghclient.Error{Op: "search_code", Kind: ghclient.ErrRateLimited, Err: errors.New("403")},
		tool:     repotools.SearchCode,
		wantKind: "rate_limited",
	}, {
		name:     "auth",
		err:      &ghclient.Error{Op: "search_issues", Kind: ghclient.ErrAuth, Err: errors.New("401")},
		tool:     repotools.SearchIssues,
		wantKind: "auth",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fake{err: tt.err}
			reg, err := repotools.NewRegistry(f.callbacks(), testCache())
			require.NoError(t, err)

			obs := dispatch(t, reg, tt.tool, map[string]any{"query": "sanity"})
			if tt.wantKind == "" {
				if _, ok := obs["error"]; ok {
					t.Errorf("not found produced an error observation: %v", obs)
				}
				if obs["total_count"] != 0 || !strings.HasPrefix(obs["message"].(string), "No results found") {
					t.Errorf("observation: got = %v", obs)
				}
				return
			}
			if obs["kind"] != tt.wantKind {
				t.Errorf("kind: got = %v, wanted = %s", obs["kind"], tt.wantKind)
			}
			if obs["query"] != "sanity" {
				t.Errorf("query: got = %v", obs["query"])
			}
		})
	}
}

func TestSearchIssuesEmpty(t *testing.T) {
	f := &fake{}
	reg, err := repotools.NewRegistry(f.callbacks(), testCache())
	require.NoError(t, err)

	obs := dispatch(t, reg, repotools.SearchIssues, map[string]any{"query": "is:issue crash"})
	if obs["total_count"] != 0 {
		t.Errorf("total_count: got = %v, wanted = 0", obs["total_count"])
	}
}

func TestRepoStructure(t *testing.T) {
	tests := []struct {
		name          string
		args          map[string]any
		wantTreeCalls int
		check         func(t *testing.T, obs map[string]any)
	}{{
		name: "served from cache",
		args: map[string]any{"repo": "adoptium/TKG"},
		check: func(t *testing.T, obs map[string]any) {
			v := obs["structure"].(repocontext.View)
			if !v.Cached || v.Files != 3 || v.Directories != 1 {
				t.Errorf("view: got = %+v", v)
			}
		},
	}, {
		name:          "failed cache entry refetches",
		args:          map[string]any{"repo": "adoptium/STF"},
		wantTreeCalls: 1,
		check: func(t *testing.T, obs map[string]any) {
			v := obs["structure"].(repocontext.View)
			if v.Cached || v.TotalItems != 4 {
				t.Errorf("view: got = %+v", v)
			}
			if obs["ref"] != "master" {
				t.Errorf("ref: got = %v, wanted = master", obs["ref"])
			}
		},
	}, {
		name:          "branch bypasses cache",
		args:          map[string]any{"repo": "adoptium/TKG", "branch": "v1.0"},
		wantTreeCalls: 1,
		check: func(t *testing.T, obs map[string]any) {
			if obs["ref"] != "v1.0" {
				t.Errorf("ref: got = %v, wanted = v1.0", obs["ref"])
			}
		},
	}, {
		name:          "detailed listing",
		args:          map[string]any{"repo": "adoptium/TKG", "detailed": true},
		wantTreeCalls: 1,
		check: func(t *testing.T, obs map[string]any) {
			want := map[string]any{
				"repository":        "adoptium/TKG",
				"ref":               "master",
				"total_items":       4,
				"total_directories": 1,
				"total_files":       3,
				"directories":       []string{"src"},
				"files":             []string{"README.md", "src/Main.java", "src/Util.java"},
			}
			if diff := cmp.Diff(want, obs); diff != "" {
				t.Errorf("listing (-want +got):\n%s", diff)
			}
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fake{}
			reg, err := repotools.NewRegistry(f.callbacks(), testCache())
			require.NoError(t, err)

			obs := dispatch(t, reg, repotools.GetRepoStructure, tt.args)
			if f.treeCalls != tt.wantTreeCalls {
				t.Errorf("tree calls: got = %d, wanted = %d", f.treeCalls, tt.wantTreeCalls)
			}
			tt.check(t, obs)
		})
	}
}

func TestFileContents(t *testing.T) {
	f := &fake{}
	reg, err := repotools.NewRegistry(f.callbacks(), testCache())
	require.NoError(t, err)

	obs := dispatch(t, reg, repotools.GetFileContents, map[string]any{"repo": "adoptium/TKG", "path": "/README.md"})
	file := obs["file"].(*ghclient.File)
	if file.Path != "README.md" || file.Content != "# TKG" {
		t.Errorf("file: got = %+v", file)
	}

	obs = dispatch(t, reg, repotools.GetFileContents, map[string]any{"repo": "adoptium/TKG", "path": " "})
	if obs["error"] != "path parameter is required" {
		t.Errorf("blank path: got = %v", obs)
	}

	f.err = &ghclient.Error{Op: "get_file_contents", Kind: ghclient.ErrNotFound, Err: errors.New("404")}
	obs = dispatch(t, reg, repotools.GetFileContents, map[string]any{"repo": "adoptium/TKG", "path": "missing.txt"})
	if obs["kind"] != "not_found" || !strings.HasPrefix(obs["error"].(string), "not found") {
		t.Errorf("missing file: got = %v", obs)
	}
}

func TestNotFoundSearchReachesTheModel(t *testing.T) {
	f := &fake{err: &ghclient.Error{Op: "search_code", Kind: ghclient.ErrNotFound, Err: errors.New("422")}}
	reg, err := repotools.NewRegistry(f.callbacks(), testCache())
	require.NoError(t, err)

	m := &modeltest.Scripted{Steps: []modeltest.Step{
		modeltest.Call(toolcall.ToolCall{ID: "c1", Name: repotools.SearchCode, Args: map[string]any{"query": "nonexistent"}}),
		modeltest.Text("Final Answer: nothing matched"),
	}}
	loop, err := react.New(m, reg)
	require.NoError(t, err)

	out, err := loop.Run(context.Background(), react.Input{Question: "q", Repositories: []string{"adoptium/TKG"}})
	require.NoError(t, err)
	if !out.Finished() {
		t.Fatalf("status: got = %s, wanted = %s", out.Status, react.StatusFinal)
	}

	var obs string
	for _, msg := range out.Conversation.Messages() {
		if msg.Role == model.RoleTool {
			obs = msg.Content
		}
	}
	if !strings.Contains(obs, "No results found") {
		t.Errorf("observation: got = %q, wanted a no results message", obs)
	}
}
