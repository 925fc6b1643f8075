// Package verify runs one verification end to end: locate the repository,
// resolve the tag, fetch both trees and reconcile them.
package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benedictfischer09/sourcecode-verifier/internal/cache"
	"github.com/benedictfischer09/sourcecode-verifier/internal/fetch"
	"github.com/benedictfischer09/sourcecode-verifier/internal/reconcile"
	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
	"github.com/benedictfischer09/sourcecode-verifier/internal/tags"
)

// ArtifactFetcher downloads and unpacks a published package.
type ArtifactFetcher interface {
	FetchArtifact(ctx context.Context, name, version, workdir string) (*fetch.Artifact, error)
}

// SourceFetcher lists tags and downloads tagged snapshots.
type SourceFetcher interface {
	ListTags(ctx context.Context, repo fetch.Repository) ([]string, error)
	FetchSource(ctx context.Context, repo fetch.Repository, tag, dest string) error
}

// RepositoryLocator finds the repository a package is built from.
type RepositoryLocator interface {
	Locate(ctx context.Context, name string) (fetch.Repository, error)
}

// Request describes one verification. Repository may be "owner/name" or a
// GitHub URL; it is located from registry metadata when empty.
type Request struct {
	Package      string `json:"package"`
	Version      string `json:"version"`
	Repository   string `json:"repository,omitempty"`
	Subdirectory string `json:"subdirectory,omitempty"`
}

// Options wires a Session. Artifacts, Sources and Locator are required.
type Options struct {
	Artifacts     ArtifactFetcher
	Sources       SourceFetcher
	Locator       RepositoryLocator
	Engine        *reconcile.Engine
	ArtifactRules *rules.RuleSet
	SourceRules   *rules.RuleSet
	Cache         *cache.Dir
	Fs            afero.Fs
	Logger        *zap.Logger
	// NoCache downloads into a per-run directory that is removed afterwards
	// unless KeepWorkdir is set.
	NoCache     bool
	KeepWorkdir bool
}

// Session verifies packages. It is safe for concurrent use.
type Session struct {
	artifacts     ArtifactFetcher
	sources       SourceFetcher
	locator       RepositoryLocator
	engine        *reconcile.Engine
	artifactRules *rules.RuleSet
	sourceRules   *rules.RuleSet
	cache         *cache.Dir
	fs            afero.Fs
	logger        *zap.Logger
	noCache       bool
	keepWorkdir   bool
}

// New validates opts and fills in defaults.
func New(opts Options) (*Session, error) {
	if opts.Artifacts == nil || opts.Sources == nil || opts.Locator == nil {
		return nil, fmt.Errorf("verify: artifact fetcher, source fetcher and locator are required")
	}

	s := &Session{
		artifacts:     opts.Artifacts,
		sources:       opts.Sources,
		locator:       opts.Locator,
		engine:        opts.Engine,
		artifactRules: opts.ArtifactRules,
		sourceRules:   opts.SourceRules,
		cache:         opts.Cache,
		fs:            opts.Fs,
		logger:        opts.Logger,
		noCache:       opts.NoCache,
		keepWorkdir:   opts.KeepWorkdir,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.engine == nil {
		s.engine = reconcile.New(reconcile.WithFs(s.fs))
	}

	var err error
	if s.artifactRules == nil {
		if s.artifactRules, err = rules.ArtifactRules(nil); err != nil {
			return nil, err
		}
	}
	if s.sourceRules == nil {
		if s.sourceRules, err = rules.SourceRules(nil); err != nil {
			return nil, err
		}
	}
	if s.cache == nil {
		if s.cache, err = cache.Open(nil, cache.Resolve("")); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Rules returns the artifact and source rule sets in use.
func (s *Session) Rules() (artifact, source *rules.RuleSet) {
	return s.artifactRules, s.sourceRules
}

// ResolveRepository returns the repository named in req, or locates it.
func (s *Session) ResolveRepository(ctx context.Context, req Request) (fetch.Repository, error) {
	var (
		repo fetch.Repository
		err  error
	)
	if req.Repository != "" {
		repo, err = fetch.ParseRepository(req.Repository)
		if err != nil {
			return fetch.Repository{}, fmt.Errorf("repository for %q: %w", req.Package, err)
		}
	} else {
		repo, err = s.locator.Locate(ctx, req.Package)
		if err != nil {
			return fetch.Repository{}, err
		}
	}
	if req.Subdirectory != "" {
		repo.Subdirectory = req.Subdirectory
	}
	return repo, nil
}

// ResolveTag lists the repository's tags and picks the one for version.
func (s *Session) ResolveTag(ctx context.Context, id Identifier, repo fetch.Repository) (tags.VersionTag, error) {
	names, err := s.sources.ListTags(ctx, repo)
	if err != nil {
		return tags.VersionTag{}, err
	}
	s.logger.Debug("looking for version in tags",
		zap.String("version", id.Version), zap.Int("tags", len(names)))

	tag, err := tags.Resolve(id.Name, id.Version, names)
	if err != nil {
		return tags.VersionTag{}, err
	}
	s.logger.Info("resolved tag",
		zap.String("package", id.Display()),
		zap.String("tag", tag.Name),
		zap.String("strategy", string(tag.Strategy)),
		zap.String("candidate", tag.Candidate))
	return tag, nil
}

// Verify runs one verification. A returned error means no comparison ran;
// Classify maps it to a status.
func (s *Session) Verify(ctx context.Context, req Request) (rec *report.Record, err error) {
	start := time.Now()

	id, err := ParseIdentifier(req.Package, req.Version)
	if err != nil {
		return nil, err
	}
	req.Package, req.Version = id.Name, id.Version
	logger := s.logger.With(zap.String("package", id.Display()))

	repo, err := s.ResolveRepository(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Debug("using repository", zap.Stringer("repository", repo))

	tag, err := s.ResolveTag(ctx, id, repo)
	if err != nil {
		return nil, err
	}

	artifactEntry := s.cache.ArtifactPath(id.Name, id.Version)
	sourceEntry := s.cache.SourcePath(repo.Slug(), tag.Name, repo.Subdirectory)
	if s.noCache {
		workdir, werr := s.cache.Workdir(id.String())
		if werr != nil {
			return nil, werr
		}
		if s.keepWorkdir {
			logger.Info("keeping work directory", zap.String("dir", workdir))
		} else {
			defer func() {
				err = multierr.Append(err, s.cache.Remove(workdir))
			}()
		}
		artifactEntry = filepath.Join(workdir, "gem")
		sourceEntry = filepath.Join(workdir, "source")
	}

	artifact, err := s.fetchArtifact(ctx, id, artifactEntry)
	if err != nil {
		return nil, err
	}
	sourceDir, err := s.fetchSource(ctx, repo, tag.Name, sourceEntry)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.Compare(ctx, artifact.Dir, sourceDir, s.artifactRules, s.sourceRules)
	if err != nil {
		return nil, err
	}

	r := report.FromResult(id.Name, id.Version, res)
	r.Repository = repo.String()
	r.Tag = tag.Name
	r.TagCandidate = string(tag.Strategy) + " " + tag.Candidate
	r.Checksum = artifact.Checksum
	r.DurationMS = time.Since(start).Milliseconds()
	logger.Info("verification finished",
		zap.String("status", string(r.Status)),
		zap.Int("differences", r.Statistics.TotalDifferences))
	return &r, nil
}

func (s *Session) fetchArtifact(ctx context.Context, id Identifier, entry string) (*fetch.Artifact, error) {
	unlock := s.cache.Lock(entry)
	defer unlock()

	if !s.noCache {
		if dir, ok := s.cache.Populated(entry); ok {
			s.logger.Debug("reusing cached artifact", zap.String("dir", dir))
			return &fetch.Artifact{Dir: dir}, nil
		}
	}
	if err := s.cache.Invalidate(entry); err != nil {
		return nil, fmt.Errorf("clearing %q: %w", entry, err)
	}

	artifact, err := s.artifacts.FetchArtifact(ctx, id.Name, id.Version, entry)
	if err != nil {
		return nil, err
	}
	if !artifact.Checked {
		s.logger.Warn("artifact checksum not verified", zap.String("package", id.Display()))
	}
	if !s.noCache {
		if err := s.cache.MarkPopulated(entry, artifact.Dir); err != nil {
			s.logger.Warn("could not mark cache entry", zap.Error(err))
		}
	}
	return artifact, nil
}

func (s *Session) fetchSource(ctx context.Context, repo fetch.Repository, tag, entry string) (string, error) {
	unlock := s.cache.Lock(entry)
	defer unlock()

	if !s.noCache {
		if dir, ok := s.cache.Populated(entry); ok {
			s.logger.Debug("reusing cached source", zap.String("dir", dir))
			return dir, nil
		}
	}
	if err := s.cache.Invalidate(entry); err != nil {
		return "", fmt.Errorf("clearing %q: %w", entry, err)
	}

	dir := filepath.Join(entry, "tree")
	if err := s.sources.FetchSource(ctx, repo, tag, dir); err != nil {
		return "", err
	}
	if !s.noCache {
		if err := s.cache.MarkPopulated(entry, dir); err != nil {
			s.logger.Warn("could not mark cache entry", zap.Error(err))
		}
	}
	return dir, nil
}

// Record runs Verify and folds a failure into a record.
func (s *Session) Record(ctx context.Context, req Request) report.Record {
	rec, err := s.Verify(ctx, req)
	if err != nil {
		s.logger.Warn("verification failed",
			zap.String("package", req.Package),
			zap.String("version", req.Version),
			zap.Error(err))
		return report.Failed(req.Package, req.Version, Classify(err), err)
	}
	return *rec
}

// VerifyLocal compares two directories already on disk. Both must exist.
func (s *Session) VerifyLocal(ctx context.Context, artifactPath, sourcePath string) (*report.Record, error) {
	start := time.Now()
	for _, p := range []struct{ label, path string }{{"artifact", artifactPath}, {"source", sourcePath}} {
		ok, err := afero.DirExists(s.fs, p.path)
		if err != nil {
			return nil, fmt.Errorf("%s path %q: %w", p.label, p.path, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s path %q: %w", p.label, p.path, os.ErrNotExist)
		}
	}

	res, err := s.engine.Compare(ctx, artifactPath, sourcePath, s.artifactRules, s.sourceRules)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(filepath.Clean(artifactPath))
	id, ok := SplitFileName(name)
	if !ok {
		id = Identifier{Name: name}
	}
	r := report.FromResult(id.Name, id.Version, res)
	r.ArtifactPath = artifactPath
	r.SourcePath = sourcePath
	r.DurationMS = time.Since(start).Milliseconds()
	return &r, nil
}
