/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repocontext

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"chainguard.dev/repoqa/ghclient"
)

const (
	maxRenderedDirs       = 10
	maxRenderedExtensions = 15
	maxRenderedKeyFiles   = 8
)

// TreeFunc lists a repository tree; an empty ref means the default branch.
// *ghclient.Client's Tree method satisfies it.
type TreeFunc func(ctx context.Context, repo ghclient.RepoID, ref string) (*ghclient.Tree, error)

// Cache holds one summary per configured repository. It is read-only after
// Load returns and safe for concurrent use.
type Cache struct {
	order     []string
	summaries map[string]*Summary
}

type loadOptions struct {
	concurrency int
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithConcurrency bounds the number of concurrent tree fetches.
func WithConcurrency(n int) LoadOption {
	return func(o *loadOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// Load fetches every repository tree once. A failed fetch records a failed
// summary for that repository and does not affect the others.
func Load(ctx context.Context, tree TreeFunc, repos []ghclient.RepoID, opts ...LoadOption) *Cache {
	o := loadOptions{concurrency: 4}
	for _, opt := range opts {
		opt(&o)
	}

	// Each goroutine writes only its own slot.
	slots := make([]*Summary, len(repos))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, repo := range repos {
		g.Go(func() error {
			log := clog.FromContext(ctx).With("repo", repo.String())
			t, err := tree(ctx, repo, "")
			if err != nil {
				log.Warn("Failed to load repository structure", "error", err)
				slots[i] = Failed(repo.String(), err)
				return nil
			}
			slots[i] = Summarize(repo.String(), t.Entries, t.Truncated)
			log.Info("Loaded repository structure", "items", len(t.Entries), "truncated", t.Truncated)
			return nil
		})
	}
	_ = g.Wait()

	c := &Cache{summaries: make(map[string]*Summary, len(repos))}
	for i, repo := range repos {
		key := repo.String()
		if _, dup := c.summaries[key]; dup {
			continue
		}
		c.order = append(c.order, key)
		c.summaries[key] = slots[i]
	}
	return c
}

// NewCache builds a cache from precomputed summaries, in order.
func NewCache(summaries ...*Summary) *Cache {
	c := &Cache{summaries: make(map[string]*Summary, len(summaries))}
	for _, s := range summaries {
		if _, dup := c.summaries[s.Repo()]; dup {
			continue
		}
		c.order = append(c.order, s.Repo())
		c.summaries[s.Repo()] = s
	}
	return c
}

// Get returns the summary for repo.
func (c *Cache) Get(repo string) (*Summary, bool) {
	s, ok := c.summaries[repo]
	return s, ok
}

// Repositories returns the cached repositories in configured order.
func (c *Cache) Repositories() []string {
	return append([]string(nil), c.order...)
}

// Contains reports whether repo is one of the configured repositories.
func (c *Cache) Contains(repo string) bool {
	_, ok := c.summaries[repo]
	return ok
}

// Render produces the compact repository context placed in the prompt.
func (c *Cache) Render() string {
	if len(c.order) == 0 {
		return "No repository structure information available."
	}

	var sb strings.Builder
	sb.WriteString("REPOSITORY STRUCTURE CONTEXT:\n")
	for _, repo := range c.order {
		s := c.summaries[repo]
		fmt.Fprintf(&sb, "\n%s:\n", repo)
		if !s.OK() {
			sb.WriteString("  [Error loading structure]\n")
			continue
		}
		fmt.Fprintf(&sb, "  Total files/dirs: %d (%d files, %d directories)", s.totalItems, s.files, s.directories)
		if s.truncated {
			sb.WriteString(" [listing truncated by GitHub]")
		}
		sb.WriteString("\n")

		if dirs := visible(s.topLevel); len(dirs) > 0 {
			fmt.Fprintf(&sb, "  Top-level directories: %s\n", strings.Join(head(dirs, maxRenderedDirs), ", "))
		}
		if exts := s.TopExtensions(maxRenderedExtensions); len(exts) > 0 {
			parts := make([]string, 0, len(exts))
			for _, e := range exts {
				parts = append(parts, fmt.Sprintf("%s (%d)", e, s.extensions[e]))
			}
			fmt.Fprintf(&sb, "  File types: %s\n", strings.Join(parts, ", "))
		}
		if len(s.keyFiles) > 0 {
			fmt.Fprintf(&sb, "  Key files: %s\n", strings.Join(head(s.keyFiles, maxRenderedKeyFiles), ", "))
		}
	}
	return sb.String()
}

// visible drops hidden directories such as .github.
func visible(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if !strings.HasPrefix(d, ".") {
			out = append(out, d)
		}
	}
	return out
}

func head(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}
