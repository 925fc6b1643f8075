package fetch

import (
	"fmt"
	"regexp"
	"strings"
)

// Repository identifies a GitHub repository, optionally narrowed to the
// directory holding one package of a monorepo.
type Repository struct {
	Owner        string `json:"owner"`
	Name         string `json:"name"`
	Subdirectory string `json:"subdirectory,omitempty"`
}

// Slug is "owner/name".
func (r Repository) Slug() string { return r.Owner + "/" + r.Name }

func (r Repository) String() string {
	if r.Subdirectory == "" {
		return r.Slug()
	}
	return r.Slug() + "//" + r.Subdirectory
}

var (
	githubRepoRe = regexp.MustCompile(`github\.com[/:]([^/]+)/([^/\s]+)`)
	treeSubdirRe = regexp.MustCompile(`/tree/[^/]+/(.+)$`)
	slugRe       = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
)

// ParseRepositoryURL extracts the repository from an https, ssh or git URL
// on github.com. A "/tree/<ref>/<dir>" suffix sets Subdirectory.
func ParseRepositoryURL(raw string) (Repository, error) {
	m := githubRepoRe.FindStringSubmatch(raw)
	if m == nil {
		return Repository{}, fmt.Errorf("could not extract repository information from GitHub URL %q", raw)
	}

	name := cutQuery(m[2])
	name = strings.TrimSuffix(name, ".git")
	if name == "" {
		return Repository{}, fmt.Errorf("could not extract repository information from GitHub URL %q", raw)
	}
	repo := Repository{Owner: m[1], Name: name}

	if sm := treeSubdirRe.FindStringSubmatch(cutQuery(raw)); sm != nil {
		repo.Subdirectory = strings.Trim(sm[1], "/")
	}
	return repo, nil
}

func cutQuery(s string) string {
	if i := strings.IndexAny(s, "#?"); i >= 0 {
		return s[:i]
	}
	return s
}

// ParseRepository accepts either "owner/name" or a GitHub URL.
func ParseRepository(s string) (Repository, error) {
	if slugRe.MatchString(s) {
		owner, name, _ := strings.Cut(s, "/")
		return Repository{Owner: owner, Name: strings.TrimSuffix(name, ".git")}, nil
	}
	return ParseRepositoryURL(s)
}
