/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"fmt"
	"strings"
)

// RepoID identifies a repository as owner/name.
type RepoID struct {
	Owner string
	Name  string
}

// ParseRepo parses "owner/name".
func ParseRepo(s string) (RepoID, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.ContainsAny(name, "/ \t") || strings.ContainsAny(owner, " \t") {
		return RepoID{}, fmt.Errorf("invalid repository %q: must be in format owner/repo", s)
	}
	return RepoID{Owner: owner, Name: name}, nil
}

// ParseRepos parses every entry, failing on the first invalid one.
func ParseRepos(ss []string) ([]RepoID, error) {
	out := make([]RepoID, 0, len(ss))
	for _, s := range ss {
		r, err := ParseRepo(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (r RepoID) String() string {
	return r.Owner + "/" + r.Name
}
