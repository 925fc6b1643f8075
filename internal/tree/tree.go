// Package tree enumerates the comparable files of a directory tree.
package tree

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
)

// ErrorFunc receives per-entry walk failures. The entry is skipped.
type ErrorFunc func(path string, err error)

// Enumerate returns the slash-separated relative paths of every regular file
// under root, hidden files included, sorted. Directories, symlinks and
// anything below a ".git" segment are left out. A missing root yields no
// paths and no error.
func Enumerate(fs afero.Fs, root string, onError ErrorFunc) ([]string, error) {
	exists, err := afero.DirExists(fs, root)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", root, err)
	}
	if !exists {
		return nil, nil
	}

	var paths []string
	walkErr := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if onError != nil {
				onError(path, err)
			}
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if info.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			if onError != nil {
				onError(path, err)
			}
			return nil
		}
		rel = filepath.ToSlash(rel)
		if hasGitSegment(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %q: %w", root, walkErr)
	}

	sort.Strings(paths)
	return paths, nil
}

func hasGitSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".git" {
			return true
		}
	}
	return false
}

// Filter drops every path matched by rs, preserving order.
func Filter(paths []string, rs *rules.RuleSet) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !rs.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Comparable enumerates root and filters the result through rs.
func Comparable(fs afero.Fs, root string, rs *rules.RuleSet, onError ErrorFunc) ([]string, error) {
	paths, err := Enumerate(fs, root, onError)
	if err != nil {
		return nil, err
	}
	return Filter(paths, rs), nil
}
