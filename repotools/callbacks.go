/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repotools

import (
	"context"
	"errors"

	"chainguard.dev/repoqa/ghclient"
)

// Callbacks provides the GitHub operations behind the tools.
type Callbacks struct {
	// SearchCode runs a code search scoped to repos.
	SearchCode func(ctx context.Context, repos []ghclient.RepoID, query string) (*ghclient.CodeResults, error)

	// SearchIssues runs an issue and pull request search scoped to repos.
	SearchIssues func(ctx context.Context, repos []ghclient.RepoID, query string) (*ghclient.IssueResults, error)

	// Tree lists a repository recursively. An empty ref means the default branch.
	Tree func(ctx context.Context, repo ghclient.RepoID, ref string) (*ghclient.Tree, error)

	// FileContents fetches one path.
	FileContents func(ctx context.Context, repo ghclient.RepoID, path, ref string) (*ghclient.File, error)
}

// ClientCallbacks wires every callback to c.
func ClientCallbacks(c *ghclient.Client, opts ghclient.SearchOptions) Callbacks {
	return Callbacks{
		SearchCode: func(ctx context.Context, repos []ghclient.RepoID, query string) (*ghclient.CodeResults, error) {
			return c.SearchCode(ctx, repos, query, opts)
		},
		SearchIssues: func(ctx context.Context, repos []ghclient.RepoID, query string) (*ghclient.IssueResults, error) {
			return c.SearchIssues(ctx, repos, query, opts)
		},
		Tree:         c.Tree,
		FileContents: c.FileContents,
	}
}

func (cb Callbacks) validate() error {
	var errs []error
	if cb.SearchCode == nil {
		errs = append(errs, errors.New("SearchCode callback is required"))
	}
	if cb.SearchIssues == nil {
		errs = append(errs, errors.New("SearchIssues callback is required"))
	}
	if cb.Tree == nil {
		errs = append(errs, errors.New("Tree callback is required"))
	}
	if cb.FileContents == nil {
		errs = append(errs, errors.New("FileContents callback is required"))
	}
	return errors.Join(errs...)
}
