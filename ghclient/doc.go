/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ghclient is the GitHub REST client used by the repository tools:
// code search, issue search, recursive tree listing and file contents.
//
// Every call is bounded by a per-request timeout and classified into one of
// the sentinel kinds ErrAuth, ErrRateLimited, ErrNotFound, ErrTransient or
// ErrInvalidRequest, wrapped in an *Error. Rate limited and transient
// failures are retried with capped exponential backoff; GitHub's
// Retry-After and rate limit reset signals raise the delay.
package ghclient
