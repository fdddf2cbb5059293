/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"

	"github.com/google/go-github/v84/github"
)

// Tree is a recursive listing of a repository at a ref.
type Tree struct {
	Repo      RepoID
	Ref       string
	SHA       string
	Entries   []TreeEntry
	Truncated bool // GitHub stopped listing early; counts are lower bounds
}

// TreeEntry is one path in a tree.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob", "tree" or "commit" (submodule)
	Size int    `json:"size,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e TreeEntry) IsDir() bool {
	return e.Type == "tree"
}

// DefaultBranch returns the repository's default branch.
func (c *Client) DefaultBranch(ctx context.Context, repo RepoID) (string, error) {
	r, _, err := call(ctx, c, "get_repository", repo.String(), func(ctx context.Context) (*github.Repository, *github.Response, error) {
		return c.gh.Repositories.Get(ctx, repo.Owner, repo.Name)
	})
	if err != nil {
		return "", err
	}
	if b := r.GetDefaultBranch(); b != "" {
		return b, nil
	}
	return "main", nil
}

// Tree lists every path in repo at ref. An empty ref means the default branch.
func (c *Client) Tree(ctx context.Context, repo RepoID, ref string) (*Tree, error) {
	if ref == "" {
		b, err := c.DefaultBranch(ctx, repo)
		if err != nil {
			return nil, err
		}
		ref = b
	}

	t, _, err := call(ctx, c, "get_tree", repo.String(), func(ctx context.Context) (*github.Tree, *github.Response, error) {
		return c.gh.Git.GetTree(ctx, repo.Owner, repo.Name, ref, true)
	})
	if err != nil {
		return nil, err
	}

	out := &Tree{
		Repo:      repo,
		Ref:       ref,
		SHA:       t.GetSHA(),
		Entries:   make([]TreeEntry, 0, len(t.Entries)),
		Truncated: t.GetTruncated(),
	}
	for _, e := range t.Entries {
		out.Entries = append(out.Entries, TreeEntry{
			Path: e.GetPath(),
			Type: e.GetType(),
			Size: e.GetSize(),
		})
	}
	return out, nil
}
