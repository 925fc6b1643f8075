// Package cache picks the working directories for downloads and reports and
// tracks which downloads can be reused.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const (
	cacheName    = "sourcecode-verifier"
	reportsName  = "sourcecode-verifier-reports"
	fallbackRoot = "tmp"
	markerName   = ".complete"
)

// tempBase is where the cache lives when it is writable.
var tempBase = "/tmp"

// Resolve returns explicit when set, otherwise a directory under /tmp if
// /tmp is writable, otherwise ./tmp/cache.
func Resolve(explicit string) string {
	return choose(explicit, cacheName, filepath.Join(".", fallbackRoot, "cache"))
}

// ReportsDir is Resolve for generated reports.
func ReportsDir(explicit string) string {
	return choose(explicit, reportsName, filepath.Join(".", fallbackRoot, "reports"))
}

func choose(explicit, name, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if info, err := os.Stat(tempBase); err == nil && info.IsDir() && writable(tempBase) {
		return filepath.Join(tempBase, name)
	}
	return fallback
}

// Dir is a cache rooted at one directory.
type Dir struct {
	Root string
	fs   afero.Fs

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open creates root if needed.
func Open(fs afero.Fs, root string) (*Dir, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %q: %w", root, err)
	}
	return &Dir{Root: root, fs: fs, locks: make(map[string]*sync.Mutex)}, nil
}

// escape keeps [A-Za-z0-9.-] and writes every other byte as _xx, so distinct
// inputs never share an escaped form and the output never contains '@'.
func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}

// key joins escaped parts with '@'.
func key(parts ...string) string {
	for i, p := range parts {
		parts[i] = escape(p)
	}
	return strings.Join(parts, "@")
}

// ArtifactPath is the entry for one gem version.
func (d *Dir) ArtifactPath(name, version string) string {
	return filepath.Join(d.Root, "gems", key(name, version))
}

// SourcePath is the entry for one tagged snapshot of repo, narrowed to
// subdir when set.
func (d *Dir) SourcePath(repo, tag, subdir string) string {
	parts := []string{repo, tag}
	if subdir != "" {
		parts = append(parts, subdir)
	}
	return filepath.Join(d.Root, "sources", key(parts...))
}

// Populated returns the directory recorded by MarkPopulated when entry was
// completely written by an earlier run.
func (d *Dir) Populated(entry string) (string, bool) {
	data, err := afero.ReadFile(d.fs, filepath.Join(entry, markerName))
	if err != nil {
		return "", false
	}
	rel := filepath.FromSlash(strings.TrimSpace(string(data)))
	if rel == "" {
		return entry, true
	}
	if !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(entry, rel), true
}

// MarkPopulated records that entry is complete and that its content lives
// in dir, which must be inside entry.
func (d *Dir) MarkPopulated(entry, dir string) error {
	rel, err := filepath.Rel(entry, dir)
	if err != nil || !filepath.IsLocal(rel) {
		return fmt.Errorf("marking %q populated: %q is outside the entry", entry, dir)
	}
	if err := afero.WriteFile(d.fs, filepath.Join(entry, markerName), []byte(filepath.ToSlash(rel)), 0o644); err != nil {
		return fmt.Errorf("marking %q populated: %w", entry, err)
	}
	return nil
}

// Invalidate removes entry so the next run downloads it again.
func (d *Dir) Invalidate(entry string) error {
	return d.fs.RemoveAll(entry)
}

// Lock serializes writers of one entry. The returned func releases it.
func (d *Dir) Lock(entry string) func() {
	d.mu.Lock()
	l, ok := d.locks[entry]
	if !ok {
		l = &sync.Mutex{}
		d.locks[entry] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Workdir creates a private directory for one run below the cache root.
func (d *Dir) Workdir(prefix string) (string, error) {
	base := filepath.Join(d.Root, "work")
	if err := d.fs.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("creating work dir: %w", err)
	}
	dir, err := afero.TempDir(d.fs, base, escape(prefix)+"-")
	if err != nil {
		return "", fmt.Errorf("creating work dir: %w", err)
	}
	return dir, nil
}

// Remove deletes a work directory.
func (d *Dir) Remove(dir string) error {
	return d.fs.RemoveAll(dir)
}
