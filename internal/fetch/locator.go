package fetch

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Locator finds the source repository of a gem.
type Locator struct {
	Gems   *RubyGems
	GitHub *GitHub
	Logger *zap.Logger
}

// Locate reads the gem's registry metadata for a github.com URL and falls
// back to repository search when none is listed.
func (l *Locator) Locate(ctx context.Context, gem string) (Repository, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := l.Gems.GemInfo(ctx, gem)
	if err != nil {
		return Repository{}, err
	}

	if u, ok := githubURL(info); ok {
		logger.Debug("found repository in gem metadata", zap.String("gem", gem), zap.String("url", u))
		repo, err := ParseRepositoryURL(u)
		if err != nil {
			return Repository{}, &RetrievalError{Op: "locate repository", Target: gem, Err: errors.Join(ErrRepositoryNotFound, err)}
		}
		return repo, nil
	}

	logger.Debug("no GitHub URL in gem metadata, searching", zap.String("gem", gem))
	if l.GitHub == nil {
		return Repository{}, &RetrievalError{Op: "locate repository", Target: gem, Err: ErrRepositoryNotFound}
	}
	return l.GitHub.Search(ctx, gem)
}

// githubURL returns the first github.com URL among the metadata fields, in
// the order they are usually most accurate.
func githubURL(info *GemInfo) (string, bool) {
	candidates := []string{info.SourceCodeURI, info.HomepageURI, info.ProjectURI}
	for _, key := range []string{"source_code_uri", "homepage_uri", "project_uri", "bug_tracker_uri", "changelog_uri", "documentation_uri"} {
		if s, ok := info.Metadata[key].(string); ok {
			candidates = append(candidates, s)
		}
	}
	for _, c := range candidates {
		if strings.Contains(c, "github.com") {
			return c, true
		}
	}
	return "", false
}
