package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	DefaultGitHubAPIURL     = "https://api.github.com"
	DefaultGitHubArchiveURL = "https://github.com"

	tagsPerPage = 100
	maxTagPages = 10
	searchLimit = 10
)

// GitHub lists tags, downloads tagged snapshots and searches repositories.
type GitHub struct {
	APIURL     string
	ArchiveURL string
	Token      string
	Client     *http.Client
	Fs         afero.Fs
	Logger     *zap.Logger
}

// NewGitHub returns a client for the public GitHub endpoints. token may be
// empty.
func NewGitHub(token string, client *http.Client, logger *zap.Logger) *GitHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHub{
		APIURL:     DefaultGitHubAPIURL,
		ArchiveURL: DefaultGitHubArchiveURL,
		Token:      token,
		Client:     defaultClient(client),
		Fs:         afero.NewOsFs(),
		Logger:     logger.Named("github"),
	}
}

func (g *GitHub) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/vnd.github+json")
	if g.Token != "" {
		h.Set("Authorization", "Bearer "+g.Token)
	}
	return h
}

// ListTags returns tag names in the order the API lists them. At most
// 1000 tags are read.
func (g *GitHub) ListTags(ctx context.Context, repo Repository) ([]string, error) {
	var names []string
	for page := 1; page <= maxTagPages; page++ {
		u := fmt.Sprintf("%s/repos/%s/tags?per_page=%d&page=%d", g.APIURL, repo.Slug(), tagsPerPage, page)

		var batch []struct {
			Name string `json:"name"`
		}
		if err := getJSON(ctx, g.Client, u, g.header(), &batch); err != nil {
			if IsNotFound(err) {
				err = fmt.Errorf("%w: %v", ErrRepositoryNotFound, err)
			}
			return nil, &RetrievalError{Op: "list tags", Target: repo.Slug(), Err: err}
		}
		for _, t := range batch {
			names = append(names, t.Name)
		}
		if len(batch) < tagsPerPage {
			break
		}
	}
	g.Logger.Debug("listed tags", zap.String("repo", repo.Slug()), zap.Int("count", len(names)))
	return names, nil
}

// FetchSource downloads the snapshot of tag and unpacks it into dest. The
// archive's top-level directory is stripped; repo.Subdirectory, when set,
// becomes the root of dest.
func (g *GitHub) FetchSource(ctx context.Context, repo Repository, tag, dest string) error {
	target := repo.Slug() + "@" + tag
	u := fmt.Sprintf("%s/%s/archive/refs/tags/%s.zip", g.ArchiveURL, repo.Slug(), escapeRef(tag))

	tmp, err := os.CreateTemp("", "sourcecode-verifier-*.zip")
	if err != nil {
		return &RetrievalError{Op: "download source", Target: target, Err: err}
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	g.Logger.Debug("downloading source archive", zap.String("url", u))
	if err := download(ctx, g.Client, u, tmp.Name(), g.header()); err != nil {
		return &RetrievalError{Op: "download source", Target: target, Err: err}
	}

	zr, err := zip.OpenReader(tmp.Name())
	if err != nil {
		return &RetrievalError{Op: "unpack source", Target: target, Err: err}
	}
	defer zr.Close()

	if err := ExtractZip(g.Fs, &zr.Reader, dest, repo.Subdirectory); err != nil {
		return &RetrievalError{Op: "unpack source", Target: target, Err: err}
	}
	return nil
}

func escapeRef(ref string) string {
	parts := strings.Split(ref, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type searchItem struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Language    string `json:"language"`
	Description string `json:"description"`
}

// Search looks a gem up by name in GitHub's repository search. Exact or
// near-exact name matches are preferred; otherwise the top result is taken
// if it looks like a Ruby project.
func (g *GitHub) Search(ctx context.Context, gem string) (Repository, error) {
	queries := []string{
		gem + " language:ruby",
		"ruby " + gem,
		gem,
		strings.NewReplacer("-", " ", "_", " ").Replace(gem) + " language:ruby",
	}

	for _, q := range queries {
		u := fmt.Sprintf("%s/search/repositories?q=%s&sort=relevance&per_page=%d", g.APIURL, url.QueryEscape(q), searchLimit)
		g.Logger.Debug("searching repositories", zap.String("query", q))

		var res struct {
			Items []searchItem `json:"items"`
		}
		if err := getJSON(ctx, g.Client, u, g.header(), &res); err != nil {
			if ctx.Err() != nil {
				return Repository{}, ctx.Err()
			}
			g.Logger.Debug("repository search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		if full, ok := pickSearchResult(gem, res.Items); ok {
			return ParseRepository(full)
		}
	}
	return Repository{}, &RetrievalError{Op: "search repository", Target: gem, Err: ErrRepositoryNotFound}
}

func squash(s string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(s)
}

func pickSearchResult(gem string, items []searchItem) (string, bool) {
	if len(items) == 0 {
		return "", false
	}

	want := strings.ToLower(gem)
	for _, it := range items {
		name := strings.ToLower(it.Name)
		if name == "" {
			continue
		}
		if name == want || name == squash(want) || squash(name) == squash(want) ||
			strings.Contains(name, want) || strings.Contains(want, name) {
			return it.FullName, true
		}
	}

	first := items[0]
	desc := strings.ToLower(first.Description)
	if first.Language == "Ruby" || strings.Contains(desc, "gem") || strings.Contains(desc, "ruby") {
		return first.FullName, true
	}
	return "", false
}
