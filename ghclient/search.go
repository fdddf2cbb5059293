/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"strings"

	"github.com/google/go-github/v84/github"
)

// SearchOptions controls paging. GitHub search allows roughly 30 requests
// per minute, so the defaults fetch a single short page.
type SearchOptions struct {
	PerPage  int // default 10, max 100
	MaxPages int // default 1
}

func (o SearchOptions) normalize() SearchOptions {
	if o.PerPage <= 0 {
		o.PerPage = 10
	}
	o.PerPage = min(o.PerPage, 100)
	if o.MaxPages <= 0 {
		o.MaxPages = 1
	}
	return o
}

// CodeResults is a page-merged code search result.
type CodeResults struct {
	Query      string     `json:"query"`
	Total      int        `json:"total_count"`
	Incomplete bool       `json:"incomplete_results,omitempty"`
	Items      []CodeItem `json:"items"`
}

// CodeItem is a single code search hit.
type CodeItem struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Repository string `json:"repository"`
	HTMLURL    string `json:"html_url"`
}

// IssueResults is a page-merged issue and pull request search result.
type IssueResults struct {
	Query      string      `json:"query"`
	Total      int         `json:"total_count"`
	Incomplete bool        `json:"incomplete_results,omitempty"`
	Items      []IssueItem `json:"items"`
}

// IssueItem is a single issue or pull request hit.
type IssueItem struct {
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	State       string   `json:"state"`
	Repository  string   `json:"repository"`
	HTMLURL     string   `json:"html_url"`
	Body        string   `json:"body,omitempty"`
	Labels      []string `json:"labels"`
	PullRequest bool     `json:"pull_request,omitempty"`
}

const issueBodyLimit = 200

// SearchCode runs a code search restricted to repos.
func (c *Client) SearchCode(ctx context.Context, repos []RepoID, query string, opts SearchOptions) (*CodeResults, error) {
	q := scopedQuery(query, repos)
	out := &CodeResults{Query: q, Items: []CodeItem{}}

	err := paginate(ctx, opts, func(ctx context.Context, lo github.ListOptions) (*github.Response, error) {
		res, resp, err := call(ctx, c, "search_code", repoLabel(repos), func(ctx context.Context) (*github.CodeSearchResult, *github.Response, error) {
			return c.gh.Search.Code(ctx, q, &github.SearchOptions{ListOptions: lo})
		})
		if err != nil {
			return resp, err
		}
		out.Total = res.GetTotal()
		out.Incomplete = out.Incomplete || res.GetIncompleteResults()
		for _, r := range res.CodeResults {
			out.Items = append(out.Items, CodeItem{
				Name:       r.GetName(),
				Path:       r.GetPath(),
				Repository: r.GetRepository().GetFullName(),
				HTMLURL:    r.GetHTMLURL(),
			})
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchIssues runs an issue and pull request search restricted to repos.
// Bodies are clipped to keep observations small.
func (c *Client) SearchIssues(ctx context.Context, repos []RepoID, query string, opts SearchOptions) (*IssueResults, error) {
	q := scopedQuery(query, repos)
	out := &IssueResults{Query: q, Items: []IssueItem{}}

	err := paginate(ctx, opts, func(ctx context.Context, lo github.ListOptions) (*github.Response, error) {
		res, resp, err := call(ctx, c, "search_issues", repoLabel(repos), func(ctx context.Context) (*github.IssuesSearchResult, *github.Response, error) {
			return c.gh.Search.Issues(ctx, q, &github.SearchOptions{ListOptions: lo})
		})
		if err != nil {
			return resp, err
		}
		out.Total = res.GetTotal()
		out.Incomplete = out.Incomplete || res.GetIncompleteResults()
		for _, is := range res.Issues {
			labels := make([]string, 0, len(is.Labels))
			for _, l := range is.Labels {
				labels = append(labels, l.GetName())
			}
			out.Items = append(out.Items, IssueItem{
				Number:      is.GetNumber(),
				Title:       is.GetTitle(),
				State:       is.GetState(),
				Repository:  repoFromURL(is.GetRepositoryURL()),
				HTMLURL:     is.GetHTMLURL(),
				Body:        clipBody(is.GetBody()),
				Labels:      labels,
				PullRequest: is.IsPullRequest(),
			})
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// paginate calls page for successive pages until GitHub reports no next
// page or MaxPages is reached.
func paginate(ctx context.Context, opts SearchOptions, page func(context.Context, github.ListOptions) (*github.Response, error)) error {
	opts = opts.normalize()
	lo := github.ListOptions{PerPage: opts.PerPage, Page: 1}
	for n := 0; n < opts.MaxPages; n++ {
		resp, err := page(ctx, lo)
		if err != nil {
			return err
		}
		if resp == nil || resp.NextPage == 0 {
			return nil
		}
		lo.Page = resp.NextPage
	}
	return nil
}

// scopedQuery appends a repo: qualifier for each repository.
func scopedQuery(query string, repos []RepoID) string {
	parts := []string{strings.TrimSpace(query)}
	for _, r := range repos {
		parts = append(parts, "repo:"+r.String())
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func repoLabel(repos []RepoID) string {
	if len(repos) == 1 {
		return repos[0].String()
	}
	return ""
}

// repoFromURL turns https://api.github.com/repos/owner/name into owner/name.
func repoFromURL(u string) string {
	parts := strings.Split(strings.TrimSuffix(u, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

func clipBody(s string) string {
	r := []rune(s)
	if len(r) <= issueBodyLimit {
		return s
	}
	return string(r[:issueBodyLimit]) + "..."
}
