/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package toolcall defines provider-independent tools and the closed registry
// the agent loop dispatches them through.
//
// A Tool pairs a Definition (name, description, typed parameters) with a
// handler. The Registry is built once from a fixed set of tools, rejects
// duplicates, and validates every call's arguments against the tool's JSON
// schema before the handler runs:
//
//	reg, err := toolcall.NewRegistry(searchCode, getFileContents)
//	obs, err := reg.Dispatch(ctx, call, trace)
//	var mce *toolcall.MalformedCallError
//	if errors.As(err, &mce) {
//		// obs already holds the corrective observation for the model.
//	}
package toolcall
