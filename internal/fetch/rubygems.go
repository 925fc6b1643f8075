package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/benedictfischer09/sourcecode-verifier/internal/supply"
)

// DefaultRubyGemsURL is the public gem registry.
const DefaultRubyGemsURL = "https://rubygems.org"

// GemInfo is the subset of the registry's gem document used for repository
// discovery.
type GemInfo struct {
	Name          string         `json:"name"`
	Version       string         `json:"version"`
	SourceCodeURI string         `json:"source_code_uri"`
	HomepageURI   string         `json:"homepage_uri"`
	ProjectURI    string         `json:"project_uri"`
	Metadata      map[string]any `json:"metadata"`
}

// Artifact is a downloaded and unpacked gem.
type Artifact struct {
	GemFile  string // the downloaded .gem
	Dir      string // unpacked data.tar.gz
	Checksum string // sha256:<hex> of GemFile
	Checked  bool   // Checksum was compared with the registry's
}

// RubyGems talks to a gem registry.
type RubyGems struct {
	BaseURL string
	Client  *http.Client
	Fs      afero.Fs
	Logger  *zap.Logger
}

// NewRubyGems returns a client for baseURL, or the public registry when empty.
func NewRubyGems(baseURL string, client *http.Client, logger *zap.Logger) *RubyGems {
	if baseURL == "" {
		baseURL = DefaultRubyGemsURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RubyGems{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  defaultClient(client),
		Fs:      afero.NewOsFs(),
		Logger:  logger.Named("rubygems"),
	}
}

// GemInfo fetches the registry document for name.
func (g *RubyGems) GemInfo(ctx context.Context, name string) (*GemInfo, error) {
	u := fmt.Sprintf("%s/api/v1/gems/%s.json", g.BaseURL, url.PathEscape(name))
	g.Logger.Debug("fetching gem info", zap.String("url", u))

	var info GemInfo
	if err := getJSON(ctx, g.Client, u, nil, &info); err != nil {
		return nil, &RetrievalError{Op: "fetch gem info", Target: name, Err: err}
	}
	return &info, nil
}

// VersionChecksum returns the sha256 published for one version, or "" when
// the registry does not provide one.
func (g *RubyGems) VersionChecksum(ctx context.Context, name, version string) (string, error) {
	u := fmt.Sprintf("%s/api/v2/rubygems/%s/versions/%s.json", g.BaseURL, url.PathEscape(name), url.PathEscape(version))

	var doc struct {
		SHA string `json:"sha"`
	}
	if err := getJSON(ctx, g.Client, u, nil, &doc); err != nil {
		return "", &RetrievalError{Op: "fetch checksum", Target: name + "-" + version, Err: err}
	}
	return doc.SHA, nil
}

// FetchArtifact downloads name-version.gem into workdir, checks it against
// the published checksum when one is available and unpacks its files into
// workdir/gem_files.
func (g *RubyGems) FetchArtifact(ctx context.Context, name, version, workdir string) (*Artifact, error) {
	target := name + "-" + version
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, &RetrievalError{Op: "download gem", Target: target, Err: err}
	}

	expected, err := g.VersionChecksum(ctx, name, version)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.Logger.Warn("published checksum unavailable", zap.String("gem", target), zap.Error(err))
	}

	gemFile := filepath.Join(workdir, target+".gem")
	u := fmt.Sprintf("%s/downloads/%s.gem", g.BaseURL, url.PathEscape(target))
	g.Logger.Debug("downloading gem", zap.String("url", u))
	if err := download(ctx, g.Client, u, gemFile, nil); err != nil {
		return nil, &RetrievalError{Op: "download gem", Target: target, Err: err}
	}

	sum, err := supply.Verify(gemFile, expected)
	if err != nil {
		return nil, &RetrievalError{Op: "verify gem", Target: target, Err: err}
	}

	f, err := os.Open(gemFile)
	if err != nil {
		return nil, &RetrievalError{Op: "unpack gem", Target: target, Err: err}
	}
	defer f.Close()

	dir := filepath.Join(workdir, "gem_files")
	if err := ExtractGem(g.Fs, f, dir); err != nil {
		return nil, &RetrievalError{Op: "unpack gem", Target: target, Err: err}
	}

	return &Artifact{GemFile: gemFile, Dir: dir, Checksum: sum.ComputedHash, Checked: sum.Checked}, nil
}

// IsNotFound reports whether err is a 404 from a remote service.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
