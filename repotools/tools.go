/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repotools

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/repoqa/agents/toolcall"
	"chainguard.dev/repoqa/ghclient"
	"chainguard.dev/repoqa/repocontext"
)

// Tool names.
const (
	SearchCode       = "search_code"
	SearchIssues     = "search_issues"
	GetRepoStructure = "get_repo_structure"
	GetFileContents  = "get_file_contents"
)

// Names lists every tool in registration order.
var Names = []string{SearchCode, SearchIssues, GetRepoStructure, GetFileContents}

type tools struct {
	cb    Callbacks
	cache *repocontext.Cache
	repos []ghclient.RepoID
}

// NewRegistry builds the registry of repository tools. Calls are limited to
// the repositories in cache.
func NewRegistry(cb Callbacks, cache *repocontext.Cache) (*toolcall.Registry, error) {
	if err := cb.validate(); err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, errors.New("repository cache cannot be nil")
	}
	repos, err := ghclient.ParseRepos(cache.Repositories())
	if err != nil {
		return nil, err
	}
	t := &tools{cb: cb, cache: cache, repos: repos}

	reg, err := toolcall.NewRegistry(
		toolcall.Tool{Def: searchCodeDef, Handler: t.searchCode},
		toolcall.Tool{Def: searchIssuesDef, Handler: t.searchIssues},
		toolcall.Tool{Def: repoStructureDef, Handler: t.repoStructure},
		toolcall.Tool{Def: fileContentsDef, Handler: t.fileContents},
	)
	if err != nil {
		return nil, err
	}
	if got := reg.Names(); !slices.Equal(got, Names) {
		return nil, fmt.Errorf("registered tools %v, wanted %v", got, Names)
	}
	return reg, nil
}

var (
	reposParam = toolcall.Parameter{
		Name:        "repos",
		Type:        "array",
		Items:       "string",
		Description: "Repositories to search, as owner/repo. Defaults to every available repository.",
	}
	branchParam = toolcall.Parameter{
		Name:        "branch",
		Type:        "string",
		Description: "Branch, tag or commit. Defaults to the repository's default branch.",
	}

	searchCodeDef = toolcall.Definition{
		Name:        SearchCode,
		Description: "Search for code across the repositories using GitHub code search. Returns matching files with paths and URLs.",
		Parameters: []toolcall.Parameter{{
			Name:        "query",
			Type:        "string",
			Description: "GitHub code search query, e.g. 'junit language:java' or 'filename:playlist.xml'",
			Required:    true,
		}, reposParam},
	}
	searchIssuesDef = toolcall.Definition{
		Name:        SearchIssues,
		Description: "Search issues and pull requests. Returns titles, states, labels and the start of each body.",
		Parameters: []toolcall.Parameter{{
			Name:        "query",
			Type:        "string",
			Description: "GitHub issue search query, e.g. 'is:issue state:open sanity'",
			Required:    true,
		}, reposParam},
	}
	repoStructureDef = toolcall.Definition{
		Name:        GetRepoStructure,
		Description: "Get the structure of a repository. Without detailed, returns counts, file types, top-level directories and key files; with detailed, lists every directory and file.",
		Parameters: []toolcall.Parameter{{
			Name:        "repo",
			Type:        "string",
			Description: "Repository as owner/repo",
			Required:    true,
		}, branchParam, {
			Name:        "detailed",
			Type:        "boolean",
			Description: "List every directory and file instead of a summary",
		}},
	}
	fileContentsDef = toolcall.Definition{
		Name:        GetFileContents,
		Description: "Read a file from a repository. A directory path returns its entries.",
		Parameters: []toolcall.Parameter{{
			Name:        "repo",
			Type:        "string",
			Description: "Repository as owner/repo",
			Required:    true,
		}, {
			Name:        "path",
			Type:        "string",
			Description: "Path relative to the repository root, e.g. 'README.md'",
			Required:    true,
		}, branchParam},
	}
)

func (t *tools) searchCode(ctx context.Context, call toolcall.ToolCall) map[string]any {
	query, errObs := toolcall.Param[string](call, "query")
	if errObs != nil {
		return errObs
	}
	repos, errObs := t.scope(call)
	if errObs != nil {
		return errObs
	}

	res, err := t.cb.SearchCode(ctx, repos, query)
	if errors.Is(err, ghclient.ErrNotFound) {
		return noResults(query, err)
	}
	if err != nil {
		return failure(ctx, call, err, map[string]any{"query": query})
	}
	if len(res.Items) == 0 {
		return noResults(res.Query, nil)
	}
	return map[string]any{
		"query":       res.Query,
		"total_count": res.Total,
		"items":       res.Items,
	}
}

func (t *tools) searchIssues(ctx context.Context, call toolcall.ToolCall) map[string]any {
	query, errObs := toolcall.Param[string](call, "query")
	if errObs != nil {
		return errObs
	}
	repos, errObs := t.scope(call)
	if errObs != nil {
		return errObs
	}

	res, err := t.cb.SearchIssues(ctx, repos, query)
	if errors.Is(err, ghclient.ErrNotFound) {
		return noResults(query, err)
	}
	if err != nil {
		return failure(ctx, call, err, map[string]any{"query": query})
	}
	if len(res.Items) == 0 {
		return noResults(res.Query, nil)
	}
	return map[string]any{
		"query":       res.Query,
		"total_count": res.Total,
		"items":       res.Items,
	}
}

func (t *tools) repoStructure(ctx context.Context, call toolcall.ToolCall) map[string]any {
	repo, errObs := t.repo(call)
	if errObs != nil {
		return errObs
	}
	branch, errObs := toolcall.OptionalParam(call, "branch", "")
	if errObs != nil {
		return errObs
	}
	detailed, errObs := toolcall.OptionalParam(call, "detailed", false)
	if errObs != nil {
		return errObs
	}

	if s, ok := t.cache.Get(repo.String()); ok && s.OK() && branch == "" && !detailed {
		v := s.View()
		v.Cached = true
		return map[string]any{"structure": v}
	}

	tree, err := t.cb.Tree(ctx, repo, branch)
	if errors.Is(err, ghclient.ErrNotFound) {
		return notFound(err, map[string]any{"repository": repo.String(), "branch": branch})
	}
	if err != nil {
		return failure(ctx, call, err, map[string]any{"repository": repo.String()})
	}

	if !detailed {
		v := repocontext.Summarize(repo.String(), tree.Entries, tree.Truncated).View()
		return map[string]any{"structure": v, "ref": tree.Ref}
	}

	dirs, files := []string{}, []string{}
	for _, e := range tree.Entries {
		if e.IsDir() {
			dirs = append(dirs, e.Path)
		} else {
			files = append(files, e.Path)
		}
	}
	slices.Sort(dirs)
	slices.Sort(files)
	obs := map[string]any{
		"repository":        repo.String(),
		"ref":               tree.Ref,
		"total_items":       len(tree.Entries),
		"total_directories": len(dirs),
		"total_files":       len(files),
		"directories":       dirs,
		"files":             files,
	}
	if tree.Truncated {
		obs["truncated"] = true
	}
	return obs
}

func (t *tools) fileContents(ctx context.Context, call toolcall.ToolCall) map[string]any {
	repo, errObs := t.repo(call)
	if errObs != nil {
		return errObs
	}
	path, errObs := toolcall.Param[string](call, "path")
	if errObs != nil {
		return errObs
	}
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return toolcall.Error("path parameter is required")
	}
	branch, errObs := toolcall.OptionalParam(call, "branch", "")
	if errObs != nil {
		return errObs
	}

	f, err := t.cb.FileContents(ctx, repo, path, branch)
	if errors.Is(err, ghclient.ErrNotFound) {
		return notFound(err, map[string]any{"repository": repo.String(), "path": path, "branch": branch})
	}
	if err != nil {
		return failure(ctx, call, err, map[string]any{"repository": repo.String(), "path": path})
	}
	return map[string]any{"file": f}
}

// scope resolves the optional repos argument against the configured set.
func (t *tools) scope(call toolcall.ToolCall) ([]ghclient.RepoID, map[string]any) {
	names, errObs := toolcall.OptionalParam[[]string](call, "repos", nil)
	if errObs != nil {
		return nil, errObs
	}
	if len(names) == 0 {
		return t.repos, nil
	}
	out := make([]ghclient.RepoID, 0, len(names))
	for _, n := range names {
		r, errObs := t.parse(n)
		if errObs != nil {
			return nil, errObs
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *tools) repo(call toolcall.ToolCall) (ghclient.RepoID, map[string]any) {
	name, errObs := toolcall.Param[string](call, "repo")
	if errObs != nil {
		return ghclient.RepoID{}, errObs
	}
	return t.parse(name)
}

func (t *tools) parse(name string) (ghclient.RepoID, map[string]any) {
	r, err := ghclient.ParseRepo(name)
	if err != nil {
		return ghclient.RepoID{}, toolcall.Error("%v", err)
	}
	if !t.cache.Contains(r.String()) {
		return ghclient.RepoID{}, toolcall.ErrorWithContext(
			fmt.Errorf("repository %s is not available", r),
			map[string]any{"available_repositories": t.cache.Repositories()},
		)
	}
	return r, nil
}

func noResults(query string, err error) map[string]any {
	obs := map[string]any{
		"query":       query,
		"total_count": 0,
		"items":       []any{},
		"message":     "No results found. Try broader terms, different qualifiers or another repository.",
	}
	if err != nil {
		obs["detail"] = err.Error()
	}
	return obs
}

func notFound(err error, fields map[string]any) map[string]any {
	obs := toolcall.ErrorWithContext(fmt.Errorf("not found: %w", err), fields)
	obs["kind"] = ghclient.KindLabel(err)
	return obs
}

func failure(ctx context.Context, call toolcall.ToolCall, err error, fields map[string]any) map[string]any {
	kind := ghclient.KindLabel(err)
	clog.FromContext(ctx).With("tool", call.Name, "kind", kind).Warn("GitHub call failed", "error", err)
	obs := toolcall.ErrorWithContext(err, fields)
	obs["kind"] = kind
	return obs
}
