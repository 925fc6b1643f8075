package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGithubURL_FieldPriority(t *testing.T) {
	info := &GemInfo{
		HomepageURI: "https://example.com",
		ProjectURI:  "https://rubygems.org/gems/foo",
		Metadata: map[string]any{
			"changelog_uri":     "https://github.com/second/foo/blob/main/CHANGELOG.md",
			"bug_tracker_uri":   "https://github.com/first/foo/issues",
			"allowed_push_host": 42,
		},
	}
	got, ok := githubURL(info)
	require.True(t, ok)
	assert.Equal(t, "https://github.com/first/foo/issues", got)

	info.SourceCodeURI = "https://github.com/top/foo"
	got, ok = githubURL(info)
	require.True(t, ok)
	assert.Equal(t, "https://github.com/top/foo", got)

	_, ok = githubURL(&GemInfo{HomepageURI: "https://example.com"})
	assert.False(t, ok)
}

func TestLocator_FromMetadata(t *testing.T) {
	srv := gemServer(t, nil, "")
	l := &Locator{Gems: NewRubyGems(srv.URL, srv.Client(), nil)}

	repo, err := l.Locate(context.Background(), "rack")
	require.NoError(t, err)
	assert.Equal(t, Repository{Owner: "rack", Name: "rack"}, repo)
}

func TestLocator_FallsBackToSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/gems/obscure.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"obscure","homepage_uri":"https://obscure.example"}`)
	})
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"name":"obscure","full_name":"dev/obscure","language":"Ruby"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := &Locator{Gems: NewRubyGems(srv.URL, srv.Client(), nil), GitHub: newTestGitHub(srv)}
	repo, err := l.Locate(context.Background(), "obscure")
	require.NoError(t, err)
	assert.Equal(t, "dev/obscure", repo.Slug())
}

func TestLocator_NoSearchConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"obscure"}`)
	}))
	defer srv.Close()

	l := &Locator{Gems: NewRubyGems(srv.URL, srv.Client(), nil)}
	_, err := l.Locate(context.Background(), "obscure")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRepositoryNotFound))
}
