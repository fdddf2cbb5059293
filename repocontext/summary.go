/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repocontext

import (
	"maps"
	"path"
	"slices"
	"strings"

	"chainguard.dev/repoqa/ghclient"
)

// NoExtension is the extension bucket for files without one.
const NoExtension = "no_extension"

// keyFilePrefixes match root-level files case-insensitively by prefix.
var keyFilePrefixes = []string{"readme", "contributing", "license", "copying", "security"}

// keyFileNames match root-level build manifests exactly.
var keyFileNames = map[string]struct{}{
	"pom.xml":          {},
	"build.gradle":     {},
	"build.gradle.kts": {},
	"settings.gradle":  {},
	"build.xml":        {},
	"go.mod":           {},
	"package.json":     {},
	"makefile":         {},
	"gnumakefile":      {},
	"cargo.toml":       {},
	"pyproject.toml":   {},
	"setup.py":         {},
	"requirements.txt": {},
	"cmakelists.txt":   {},
	"dockerfile":       {},
	"jenkinsfile":      {},
	"configure":        {},
}

// Summary is an immutable digest of a repository tree. Accessors return copies.
type Summary struct {
	repo        string
	totalItems  int
	directories int
	files       int
	extensions  map[string]int
	topLevel    []string
	keyFiles    []string
	truncated   bool
	err         string
}

// Summarize digests a tree listing.
func Summarize(repo string, entries []ghclient.TreeEntry, truncated bool) *Summary {
	s := &Summary{
		repo:       repo,
		totalItems: len(entries),
		extensions: make(map[string]int),
		truncated:  truncated,
	}
	for _, e := range entries {
		if e.IsDir() {
			s.directories++
			if !strings.Contains(e.Path, "/") {
				s.topLevel = append(s.topLevel, e.Path)
			}
			continue
		}
		s.files++
		s.extensions[extension(e.Path)]++
		if !strings.Contains(e.Path, "/") && isKeyFile(e.Path) {
			s.keyFiles = append(s.keyFiles, e.Path)
		}
	}
	slices.Sort(s.topLevel)
	slices.Sort(s.keyFiles)
	return s
}

// Failed records a repository whose tree could not be fetched.
func Failed(repo string, err error) *Summary {
	return &Summary{repo: repo, extensions: map[string]int{}, err: err.Error()}
}

// extension returns the lowercase extension of the base name, without the dot.
// Dotfiles such as .gitignore have no extension.
func extension(p string) string {
	base := path.Base(p)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return NoExtension
	}
	return strings.ToLower(base[i+1:])
}

func isKeyFile(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := keyFileNames[lower]; ok {
		return true
	}
	for _, p := range keyFilePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Repo returns the repository identifier.
func (s *Summary) Repo() string { return s.repo }

// TotalItems counts every tree entry, files and directories alike.
func (s *Summary) TotalItems() int { return s.totalItems }

// Directories counts directory entries at any depth.
func (s *Summary) Directories() int { return s.directories }

// Files counts non-directory entries.
func (s *Summary) Files() int { return s.files }

// Extensions maps lowercase extension to file count.
func (s *Summary) Extensions() map[string]int { return maps.Clone(s.extensions) }

// TopLevelDirs lists depth-1 directories in lexical order.
func (s *Summary) TopLevelDirs() []string { return slices.Clone(s.topLevel) }

// KeyFiles lists recognized root-level files in lexical order.
func (s *Summary) KeyFiles() []string { return slices.Clone(s.keyFiles) }

// Truncated reports whether GitHub cut the listing short.
func (s *Summary) Truncated() bool { return s.truncated }

// Err is non-empty when the summary failed to load.
func (s *Summary) Err() string { return s.err }

// OK reports whether the summary loaded.
func (s *Summary) OK() bool { return s.err == "" }

// TopExtensions returns up to n extensions ordered by descending count,
// ties broken lexically.
func (s *Summary) TopExtensions(n int) []string {
	exts := slices.Collect(maps.Keys(s.extensions))
	slices.SortFunc(exts, func(a, b string) int {
		if d := s.extensions[b] - s.extensions[a]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	if len(exts) > n {
		exts = exts[:n]
	}
	return exts
}

// View is the JSON shape of a summary handed to the model.
type View struct {
	Repository   string         `json:"repository"`
	TotalItems   int            `json:"total_items"`
	Directories  int            `json:"total_directories"`
	Files        int            `json:"total_files"`
	Extensions   map[string]int `json:"files_by_extension"`
	TopLevelDirs []string       `json:"top_level_directories"`
	KeyFiles     []string       `json:"key_files"`
	Truncated    bool           `json:"truncated,omitempty"`
	Cached       bool           `json:"cached"`
	Error        string         `json:"error,omitempty"`
}

// View returns a copy of s shaped for serialization.
func (s *Summary) View() View {
	return View{
		Repository:   s.repo,
		TotalItems:   s.totalItems,
		Directories:  s.directories,
		Files:        s.files,
		Extensions:   s.Extensions(),
		TopLevelDirs: s.TopLevelDirs(),
		KeyFiles:     s.KeyFiles(),
		Truncated:    s.truncated,
		Error:        s.err,
	}
}
