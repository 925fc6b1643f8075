package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/benedictfischer09/sourcecode-verifier/internal/cache"
	"github.com/benedictfischer09/sourcecode-verifier/internal/config"
	"github.com/benedictfischer09/sourcecode-verifier/internal/fetch"
	"github.com/benedictfischer09/sourcecode-verifier/internal/logging"
	"github.com/benedictfischer09/sourcecode-verifier/internal/policy"
	"github.com/benedictfischer09/sourcecode-verifier/internal/reconcile"
	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
	"github.com/benedictfischer09/sourcecode-verifier/internal/verify"
)

const httpTimeout = 5 * time.Minute

// newEngine builds the reconciliation engine for the configured differ.
func (a *app) newEngine(fs afero.Fs) (*reconcile.Engine, error) {
	var differ reconcile.Differ = reconcile.NewUnifiedDiffer()
	if a.cfg.Diff.Engine == config.DiffGit {
		gd, err := reconcile.NewGitDiffer(a.cfg.Diff.Git)
		if err != nil {
			return nil, fmt.Errorf("diff engine: %w", err)
		}
		differ = gd
	}
	return reconcile.New(
		reconcile.WithFs(fs),
		reconcile.WithDiffer(differ),
		reconcile.WithObserver(logging.NewObserver(a.logger)),
		reconcile.WithWorkers(a.cfg.Diff.Workers),
	), nil
}

// newSession wires the registry and GitHub clients, the cache and the rule
// sets into a verification session.
func (a *app) newSession() (*verify.Session, error) {
	fs := afero.NewOsFs()
	client := &http.Client{Timeout: httpTimeout}

	gems := fetch.NewRubyGems(a.cfg.RubyGemsURL, client, a.logger)
	github := fetch.NewGitHub(a.cfg.GitHubToken, client, a.logger)

	engine, err := a.newEngine(fs)
	if err != nil {
		return nil, err
	}
	artifactRules, err := rules.ArtifactRules(a.cfg.Ignore.Artifact)
	if err != nil {
		return nil, err
	}
	sourceRules, err := rules.SourceRules(a.cfg.Ignore.Source)
	if err != nil {
		return nil, err
	}
	dir, err := cache.Open(fs, cache.Resolve(a.cfg.CacheDir))
	if err != nil {
		return nil, err
	}

	return verify.New(verify.Options{
		Artifacts:     gems,
		Sources:       github,
		Locator:       &fetch.Locator{Gems: gems, GitHub: github, Logger: a.logger},
		Engine:        engine,
		ArtifactRules: artifactRules,
		SourceRules:   sourceRules,
		Cache:         dir,
		Fs:            fs,
		Logger:        a.logger,
		NoCache:       a.cfg.NoCache,
		KeepWorkdir:   a.cfg.KeepWorkdir,
	})
}

func (a *app) newPolicy() (*policy.Engine, error) {
	engine, err := policy.New(a.cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("compiling policy: %w", err)
	}
	return engine, nil
}

func (a *app) reportsDir() string {
	return cache.ReportsDir(a.cfg.ReportsDir)
}
