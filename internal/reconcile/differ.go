package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/benedictfischer09/sourcecode-verifier/internal/supply"
)

// Differ renders the body of one diff block for a path whose contents differ.
// The "diff -u" header line is written by the engine.
type Differ interface {
	Diff(ctx context.Context, path string, artifact, source []byte) (string, error)
}

// binarySniffLen is how much of a file is inspected for a NUL byte.
const binarySniffLen = 8000

func isBinary(b []byte) bool {
	if len(b) > binarySniffLen {
		b = b[:binarySniffLen]
	}
	return bytes.IndexByte(b, 0) >= 0
}

// UnifiedDiffer produces unified diffs in process.
type UnifiedDiffer struct {
	Context int
}

// NewUnifiedDiffer returns a UnifiedDiffer with three lines of context.
func NewUnifiedDiffer() *UnifiedDiffer {
	return &UnifiedDiffer{Context: 3}
}

func (d *UnifiedDiffer) Diff(_ context.Context, path string, artifact, source []byte) (string, error) {
	from, to := "artifact/"+path, "source/"+path
	if isBinary(artifact) || isBinary(source) {
		return fmt.Sprintf("Binary files %s and %s differ\n", from, to), nil
	}

	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(artifact)),
		B:        difflib.SplitLines(string(source)),
		FromFile: from,
		ToFile:   to,
		Context:  d.Context,
	})
	if err != nil {
		return "", fmt.Errorf("diffing %q: %w", path, err)
	}
	if out == "" {
		return fmt.Sprintf("Files %s and %s differ\n", from, to), nil
	}
	return out, nil
}

// GitDiffer shells out to "git diff --no-index". Both buffers are written to
// a private temporary directory so the output carries stable artifact/ and
// source/ labels.
type GitDiffer struct {
	binary string
}

// NewGitDiffer resolves the git executable. command may be empty for "git".
func NewGitDiffer(command string) (*GitDiffer, error) {
	if command == "" {
		command = "git"
	}
	resolved, err := supply.ResolvePath(command)
	if err != nil {
		return nil, fmt.Errorf("git differ: %w", err)
	}
	return &GitDiffer{binary: resolved}, nil
}

func (d *GitDiffer) Diff(ctx context.Context, path string, artifact, source []byte) (string, error) {
	dir, err := os.MkdirTemp("", "sourcecode-verifier-diff-*")
	if err != nil {
		return "", fmt.Errorf("creating diff workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	from, to := "artifact/"+path, "source/"+path
	for name, content := range map[string][]byte{from: artifact, to: source} {
		target, err := supply.Within(dir, name)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return "", fmt.Errorf("creating diff workspace: %w", err)
		}
		if err := os.WriteFile(target, content, 0o600); err != nil {
			return "", fmt.Errorf("writing %q: %w", name, err)
		}
	}

	cmd := exec.CommandContext(ctx, d.binary, "diff", "--no-index", "--no-prefix", "--no-color", "--", from, to)
	cmd.Dir = dir
	cmd.Env = supply.DiffEnv(os.Environ())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return fmt.Sprintf("Files %s and %s differ\n", from, to), nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		return stripGitHeader(stdout.String()), nil
	default:
		return "", fmt.Errorf("git diff %q: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
}

// stripGitHeader drops the "diff --git" and "index" lines git prints before
// the file labels.
func stripGitHeader(out string) string {
	lines := strings.SplitAfter(out, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "Binary files ") {
			return strings.Join(lines[i:], "")
		}
	}
	return out
}
