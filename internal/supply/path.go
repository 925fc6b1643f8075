package supply

import (
	"fmt"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
)

// ResolvePath resolves a command to an absolute path.
// Uses exec.LookPath for non-absolute commands, then evaluates symlinks.
func ResolvePath(command string) (string, error) {
	var absPath string

	if filepath.IsAbs(command) {
		absPath = command
	} else {
		found, err := exec.LookPath(command)
		if err != nil {
			return "", fmt.Errorf("resolving command %q: %w", command, err)
		}
		abs, err := filepath.Abs(found)
		if err != nil {
			return "", fmt.Errorf("absolute path for %q: %w", found, err)
		}
		absPath = abs
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %q: %w", absPath, err)
	}

	return resolved, nil
}

// Contained reports an error unless target is root or lies beneath it.
func Contained(root, target string) error {
	root = filepath.Clean(root)
	if target == root || strings.HasPrefix(target, root+string(filepath.Separator)) {
		return nil
	}
	return fmt.Errorf("path %q is outside %q", target, root)
}

// Within joins an archive entry name onto root and rejects names that would
// land outside of it: absolute names, ".." traversal, or an empty result.
func Within(root, name string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))
	if clean == "/" {
		return "", fmt.Errorf("archive entry %q has no file name", name)
	}
	if strings.HasPrefix(name, "/") || strings.Contains("/"+strings.ReplaceAll(name, `\`, "/")+"/", "/../") {
		return "", fmt.Errorf("archive entry %q escapes extraction root", name)
	}

	target := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if err := Contained(root, target); err != nil {
		return "", fmt.Errorf("archive entry %q: %w", name, err)
	}
	return target, nil
}
