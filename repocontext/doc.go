/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package repocontext summarizes repository trees once at startup so every
// query's prompt can describe what each repository contains.
//
// The cache is never refreshed: a different repository set means building a
// new cache.
package repocontext
