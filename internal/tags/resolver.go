// Package tags maps a requested version to a repository tag.
//
// Resolution walks a fixed, ordered cascade of candidates: literal tag names
// first, regular expressions second. The first candidate that matches any
// tag wins, and among several matching tags the one listed first in the
// input is chosen. Tags are never sorted.
package tags

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Strategy records which half of the cascade produced a match.
type Strategy string

const (
	Exact   Strategy = "exact"
	Pattern Strategy = "pattern"
)

// VersionTag is the outcome of a resolution. Candidate is the literal name
// or regular expression that matched, so a resolution can be audited.
type VersionTag struct {
	Name      string   `json:"name"`
	Requested string   `json:"requested"`
	Project   string   `json:"project"`
	Strategy  Strategy `json:"strategy"`
	Candidate string   `json:"candidate"`
}

// maxSample caps the number of tag names carried by a TagNotFoundError.
const maxSample = 20

// ErrTagNotFound is matched by every *TagNotFoundError.
var ErrTagNotFound = errors.New("tag not found")

// TagNotFoundError reports that no candidate matched.
type TagNotFoundError struct {
	Project string
	Version string
	Sample  []string // first tags of the listing, at most 20
	Total   int
}

func (e *TagNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not find matching tag for version %q", e.Version)
	if e.Project != "" {
		fmt.Fprintf(&b, " of %q", e.Project)
	}
	fmt.Fprintf(&b, ". Available tags: %s", strings.Join(e.Sample, ", "))
	if e.Total > len(e.Sample) {
		b.WriteString("...")
	}
	return b.String()
}

func (e *TagNotFoundError) Is(target error) bool {
	return target == ErrTagNotFound
}

// candidate is one step of the cascade.
type candidate interface {
	strategy() Strategy
	String() string
	match(tags []string) (string, bool)
}

type exactCandidate string

func (c exactCandidate) strategy() Strategy { return Exact }
func (c exactCandidate) String() string     { return string(c) }

func (c exactCandidate) match(tags []string) (string, bool) {
	for _, tag := range tags {
		if tag == string(c) {
			return tag, true
		}
	}
	return "", false
}

type patternCandidate struct {
	re *regexp.Regexp
}

func (c patternCandidate) strategy() Strategy { return Pattern }
func (c patternCandidate) String() string     { return c.re.String() }

func (c patternCandidate) match(tags []string) (string, bool) {
	for _, tag := range tags {
		if c.re.MatchString(tag) {
			return tag, true
		}
	}
	return "", false
}

// exactTemplates and patternTemplates are expanded in order. {version} and
// {project} are placeholders; in patterns the version is quoted and the
// project is inserted verbatim.
var (
	exactTemplates = []string{
		"{version}",
		"v{version}",
		"{project}-{version}",
		"{project}_{version}",
		"{project}/{version}",
		"release-{version}",
		"{version}-release",
	}
	patternTemplates = []string{
		`^v?{version}$`,
		`^{project}[-_]?v?{version}$`,
		`^v?{version}[-_].*$`,
		`.*[-_]v?{version}$`,
		`^v?{version}[^0-9]`,
	}
)

// cascade expands the templates for one project and version. Pattern
// templates that do not compile with the given project name are dropped.
func cascade(project, version string) []candidate {
	var cands []candidate
	exact := strings.NewReplacer("{project}", project, "{version}", version)
	for _, tmpl := range exactTemplates {
		cands = append(cands, exactCandidate(exact.Replace(tmpl)))
	}

	pattern := strings.NewReplacer("{project}", project, "{version}", regexp.QuoteMeta(version))
	for _, tmpl := range patternTemplates {
		expr := pattern.Replace(tmpl)
		re, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		cands = append(cands, patternCandidate{re: re})
	}
	return cands
}

// Cascade lists the candidates tried for project and version, in order.
func Cascade(project, version string) []string {
	cands := cascade(project, version)
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = string(c.strategy()) + " " + c.String()
	}
	return out
}

// Resolve finds the tag for version among tags. It is deterministic for a
// given (project, version, tags) triple.
func Resolve(project, version string, tags []string) (VersionTag, error) {
	if version == "" {
		return VersionTag{}, fmt.Errorf("resolving tag for %q: version is required", project)
	}

	for _, c := range cascade(project, version) {
		if name, ok := c.match(tags); ok {
			return VersionTag{
				Name:      name,
				Requested: version,
				Project:   project,
				Strategy:  c.strategy(),
				Candidate: c.String(),
			}, nil
		}
	}

	sample := tags
	if len(sample) > maxSample {
		sample = sample[:maxSample]
	}
	return VersionTag{}, &TagNotFoundError{
		Project: project,
		Version: version,
		Sample:  append([]string(nil), sample...),
		Total:   len(tags),
	}
}
