package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHub(srv *httptest.Server) *GitHub {
	g := NewGitHub("secret-token", srv.Client(), nil)
	g.APIURL = srv.URL
	g.ArchiveURL = srv.URL
	return g
}

func TestGitHub_ListTagsPaginates(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		n := 100
		if page == 2 {
			n = 3
		}
		tags := make([]map[string]string, n)
		for i := range tags {
			tags[i] = map[string]string{"name": fmt.Sprintf("v%d.%d.0", page, i)}
		}
		json.NewEncoder(w).Encode(tags)
	}))
	defer srv.Close()

	tags, err := newTestGitHub(srv).ListTags(context.Background(), Repository{Owner: "rack", Name: "rack"})
	require.NoError(t, err)
	assert.Len(t, tags, 103)
	assert.Equal(t, "v1.0.0", tags[0])
	assert.Equal(t, "v2.2.0", tags[102])
	assert.Equal(t, "Bearer secret-token", auth)
}

func TestGitHub_ListTagsStopsAtPageLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		tags := make([]map[string]string, 100)
		for i := range tags {
			tags[i] = map[string]string{"name": "t"}
		}
		json.NewEncoder(w).Encode(tags)
	}))
	defer srv.Close()

	tags, err := newTestGitHub(srv).ListTags(context.Background(), Repository{Owner: "a", Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, 10, calls)
	assert.Len(t, tags, 1000)
}

func TestGitHub_ListTagsMissingRepository(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestGitHub(srv).ListTags(context.Background(), Repository{Owner: "gone", Name: "gone"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRepositoryNotFound))
	assert.True(t, errors.Is(err, ErrRetrieval))
}

func TestGitHub_FetchSource(t *testing.T) {
	archive := zipBytes(t, []entry{
		{name: "mono-1.0/gems/foo/lib/foo.rb", content: "foo"},
		{name: "mono-1.0/Gemfile", content: "gemfile"},
	})
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write(archive)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "source")
	repo := Repository{Owner: "acme", Name: "mono", Subdirectory: "gems/foo"}
	require.NoError(t, newTestGitHub(srv).FetchSource(context.Background(), repo, "foo/v1.0", dest))

	assert.Equal(t, "/acme/mono/archive/refs/tags/foo/v1.0.zip", requested)
	b, err := os.ReadFile(filepath.Join(dest, "lib", "foo.rb"))
	require.NoError(t, err)
	assert.Equal(t, "foo", string(b))
	_, err = os.Stat(filepath.Join(dest, "Gemfile"))
	assert.True(t, os.IsNotExist(err))
}

func TestGitHub_FetchSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestGitHub(srv).FetchSource(context.Background(), Repository{Owner: "a", Name: "b"}, "v1", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetrieval))
	assert.Contains(t, err.Error(), "500")
}

func TestGitHub_SearchPrefersNameMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[
			{"name":"awesome-list","full_name":"someone/awesome-list","language":"Ruby"},
			{"name":"my_gem","full_name":"owner/my_gem","language":"Ruby"}
		]}`)
	}))
	defer srv.Close()

	repo, err := newTestGitHub(srv).Search(context.Background(), "my-gem")
	require.NoError(t, err)
	assert.Equal(t, "owner/my_gem", repo.Slug())
}

func TestGitHub_SearchNothingFound(t *testing.T) {
	queries := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries++
		if queries == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"items":[{"name":"unrelated","full_name":"x/unrelated","language":"Go","description":"a tool"}]}`)
	}))
	defer srv.Close()

	_, err := newTestGitHub(srv).Search(context.Background(), "zzz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRepositoryNotFound))
	assert.Equal(t, 4, queries)
}

func TestPickSearchResult(t *testing.T) {
	tests := []struct {
		name  string
		gem   string
		items []searchItem
		want  string
		ok    bool
	}{
		{"empty", "foo", nil, "", false},
		{"exact", "foo", []searchItem{{Name: "Foo", FullName: "o/Foo"}}, "o/Foo", true},
		{"squashed", "foo-bar", []searchItem{{Name: "foobar", FullName: "o/foobar"}}, "o/foobar", true},
		{"contains", "rails", []searchItem{{Name: "rails-api", FullName: "o/rails-api"}}, "o/rails-api", true},
		{"ruby description", "zzz", []searchItem{{Name: "x", FullName: "o/x", Description: "A Ruby library"}}, "o/x", true},
		{"irrelevant", "zzz", []searchItem{{Name: "abc", FullName: "o/abc", Language: "Go"}}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickSearchResult(tt.gem, tt.items)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
