/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package repotools declares the closed set of GitHub tools the agent may
// call: search_code, search_issues, get_repo_structure and get_file_contents.
//
// Tools run against a Callbacks struct so tests can stub GitHub. Handlers
// never fail the query: GitHub errors become observations the model can
// reason about, and a NotFound search becomes an empty result.
//
//	cb := repotools.ClientCallbacks(gh, ghclient.SearchOptions{})
//	reg, err := repotools.NewRegistry(cb, cache)
package repotools
