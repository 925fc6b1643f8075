// Package batch verifies every gem pinned by a bundle.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Package is one pinned gem.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (p Package) String() string { return p.Name + " " + p.Version }

// specLine matches a top-level spec entry: exactly four spaces of indent.
// Dependency lines under a spec are indented six spaces and are skipped.
var specLine = regexp.MustCompile(`^    ([^\s(]+) \(([^)]+)\)\s*$`)

// platformSuffixes are stripped from locked versions such as
// "1.15.4-x86_64-linux" so the registry download matches the source tag.
var platformSuffixes = []string{
	"-x86_64-linux-musl", "-x86_64-linux-gnu", "-x86_64-linux",
	"-aarch64-linux-musl", "-aarch64-linux-gnu", "-aarch64-linux",
	"-arm64-darwin", "-x86_64-darwin", "-arm-linux",
	"-x64-mingw-ucrt", "-x64-mingw32", "-x86-mingw32",
	"-java",
}

// ParseLockfile reads the GEM specs of a Gemfile.lock. Bundler itself is
// skipped, platform variants collapse into one entry, and the result is
// sorted by name.
func ParseLockfile(r io.Reader) ([]Package, error) {
	seen := make(map[Package]bool)
	var out []Package

	var inGem, inSpecs bool
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")

		switch {
		case text == "":
			inGem, inSpecs = false, false
			continue
		case !strings.HasPrefix(text, " "):
			inGem = text == "GEM"
			inSpecs = false
			continue
		case inGem && strings.TrimSpace(text) == "specs:":
			inSpecs = true
			continue
		}
		if !inGem || !inSpecs {
			continue
		}

		m := specLine.FindStringSubmatch(text)
		if m == nil {
			if strings.HasPrefix(text, "    ") && !strings.HasPrefix(text, "     ") {
				return nil, fmt.Errorf("lockfile line %d: malformed spec %q", line, strings.TrimSpace(text))
			}
			continue
		}
		name, version := m[1], stripPlatform(m[2])
		if name == "bundler" {
			continue
		}
		p := Package{Name: name, Version: version}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func stripPlatform(version string) string {
	for _, suffix := range platformSuffixes {
		if strings.HasSuffix(version, suffix) {
			return strings.TrimSuffix(version, suffix)
		}
	}
	return version
}
