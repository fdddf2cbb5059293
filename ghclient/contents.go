/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/go-github/v84/github"
)

// File is the decoded contents of a path, or a listing when the path is a
// directory.
type File struct {
	Repository string   `json:"repository"`
	Path       string   `json:"path"`
	Name       string   `json:"name,omitempty"`
	Ref        string   `json:"ref,omitempty"`
	SHA        string   `json:"sha,omitempty"`
	Size       int      `json:"size"`
	HTMLURL    string   `json:"html_url,omitempty"`
	Content    string   `json:"content,omitempty"`
	Binary     bool     `json:"binary,omitempty"`
	IsDir      bool     `json:"is_dir,omitempty"`
	Entries    []string `json:"entries,omitempty"`
}

// FileContents fetches path from repo at ref (empty ref: default branch).
// Binary files are replaced by a placeholder.
func (c *Client) FileContents(ctx context.Context, repo RepoID, path, ref string) (*File, error) {
	type contents struct {
		file *github.RepositoryContent
		dir  []*github.RepositoryContent
	}

	got, _, err := call(ctx, c, "get_file_contents", repo.String(), func(ctx context.Context) (contents, *github.Response, error) {
		f, d, resp, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, &github.RepositoryContentGetOptions{Ref: ref})
		return contents{file: f, dir: d}, resp, err
	})
	if err != nil {
		return nil, err
	}

	out := &File{Repository: repo.String(), Path: path, Ref: ref}
	if got.file == nil {
		out.IsDir = true
		for _, e := range got.dir {
			name := e.GetPath()
			if e.GetType() == "dir" {
				name += "/"
			}
			out.Entries = append(out.Entries, name)
		}
		return out, nil
	}

	f := got.file
	out.Name = f.GetName()
	out.SHA = f.GetSHA()
	out.Size = f.GetSize()
	out.HTMLURL = f.GetHTMLURL()

	if f.GetEncoding() == "none" {
		// GitHub omits the body of files over 1MB.
		out.Content = fmt.Sprintf("[file too large to display, %d bytes]", out.Size)
		return out, nil
	}
	text, err := f.GetContent()
	if err != nil {
		return nil, &Error{Op: "get_file_contents", Repo: repo.String(), Kind: ErrInvalidRequest, Err: err}
	}
	if !utf8.ValidString(text) {
		out.Binary = true
		out.Content = fmt.Sprintf("[binary file, %d bytes]", len(text))
		return out, nil
	}
	out.Content = text
	return out, nil
}
