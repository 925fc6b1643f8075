// Package reconcile classifies the files of a published artifact against the
// tagged source tree it claims to come from.
package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
	"github.com/benedictfischer09/sourcecode-verifier/internal/tree"
)

// Result is the outcome of one reconciliation. All lists are sorted and
// pairwise disjoint.
type Result struct {
	Identical    bool     `json:"identical"`
	ArtifactOnly []string `json:"artifact_only"`
	SourceOnly   []string `json:"source_only"`
	Modified     []string `json:"modified"`
	Diff         string   `json:"diff"`
	Summary      string   `json:"summary"`
}

// Total is the number of paths in any category.
func (r *Result) Total() int {
	return len(r.ArtifactOnly) + len(r.SourceOnly) + len(r.Modified)
}

// Engine compares two trees. It holds no per-comparison state and may be
// shared.
type Engine struct {
	fs       afero.Fs
	differ   Differ
	observer Observer
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithFs sets the filesystem both trees are read from.
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithDiffer sets the diff renderer for modified paths.
func WithDiffer(d Differ) Option {
	return func(e *Engine) { e.differ = d }
}

// WithObserver sets the receiver of tolerated failures.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithWorkers bounds how many common paths are compared at once.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// New returns an Engine reading the OS filesystem with the in-process differ.
func New(opts ...Option) *Engine {
	e := &Engine{
		fs:       afero.NewOsFs(),
		differ:   NewUnifiedDiffer(),
		observer: NopObserver{},
		workers:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.observer == nil {
		e.observer = NopObserver{}
	}
	return e
}

// Compare enumerates both roots, drops paths matched by each side's rules and
// classifies the rest. Missing roots and unreadable files are reported to the
// observer and do not fail the comparison; only cancellation of ctx does.
func (e *Engine) Compare(ctx context.Context, artifactRoot, sourceRoot string, artifactRules, sourceRules *rules.RuleSet) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifactFiles := e.comparable(SideArtifact, artifactRoot, artifactRules)
	sourceFiles := e.comparable(SideSource, sourceRoot, sourceRules)

	inSource := make(map[string]bool, len(sourceFiles))
	for _, p := range sourceFiles {
		inSource[p] = true
	}
	inArtifact := make(map[string]bool, len(artifactFiles))
	for _, p := range artifactFiles {
		inArtifact[p] = true
	}

	result := &Result{}
	var common []string
	for _, p := range artifactFiles {
		if inSource[p] {
			common = append(common, p)
		} else {
			result.ArtifactOnly = append(result.ArtifactOnly, p)
		}
	}
	for _, p := range sourceFiles {
		if !inArtifact[p] {
			result.SourceOnly = append(result.SourceOnly, p)
		}
	}

	blocks := make([]string, len(common))
	modified := make([]bool, len(common))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range common {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			block, changed, err := e.comparePath(gctx, artifactRoot, sourceRoot, p)
			if err != nil {
				return err
			}
			blocks[i], modified[i] = block, changed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var diff strings.Builder
	for i, p := range common {
		if !modified[i] {
			continue
		}
		result.Modified = append(result.Modified, p)
		diff.WriteString(blocks[i])
	}

	result.Diff = diff.String()
	result.Identical = result.Total() == 0
	result.Summary = summarize(result)
	return result, nil
}

func (e *Engine) comparable(side Side, root string, rs *rules.RuleSet) []string {
	exists, err := afero.DirExists(e.fs, root)
	if err == nil && !exists {
		e.observer.TreeMissing(side, root)
		return nil
	}

	paths, err := tree.Comparable(e.fs, root, rs, func(path string, err error) {
		e.observer.PathFailed(&ComparisonIOError{Side: side, Path: path, Err: err})
	})
	if err != nil {
		e.observer.PathFailed(&ComparisonIOError{Side: side, Path: root, Err: err})
		return nil
	}
	return paths
}

func blockHeader(path string) string {
	return fmt.Sprintf("diff -u artifact/%s source/%s\n", path, path)
}

// comparePath returns the diff block for one common path and whether it
// differs. The error is non-nil only when ctx is done.
func (e *Engine) comparePath(ctx context.Context, artifactRoot, sourceRoot, path string) (string, bool, error) {
	artifact, err := afero.ReadFile(e.fs, filepath.Join(artifactRoot, filepath.FromSlash(path)))
	if err != nil {
		return e.unreadable(SideArtifact, path, err), true, nil
	}
	source, err := afero.ReadFile(e.fs, filepath.Join(sourceRoot, filepath.FromSlash(path)))
	if err != nil {
		return e.unreadable(SideSource, path, err), true, nil
	}

	if bytes.Equal(artifact, source) {
		return "", false, nil
	}

	body, err := e.differ.Diff(ctx, path, artifact, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		e.observer.DiffFailed(path, err)
		body = fmt.Sprintf("Files artifact/%s and source/%s differ (diff unavailable: %v)\n", path, path, err)
	}
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return blockHeader(path) + body, true, nil
}

func (e *Engine) unreadable(side Side, path string, err error) string {
	ioErr := &ComparisonIOError{Side: side, Path: path, Err: err}
	e.observer.PathFailed(ioErr)
	return blockHeader(path) + fmt.Sprintf("Content could not be compared: %v\n", ioErr)
}
