// Package report renders verification records as text, JSON, HTML, tables
// and archives.
package report

import (
	"time"

	"github.com/benedictfischer09/sourcecode-verifier/internal/reconcile"
)

// Status is the outcome category of one verification.
type Status string

const (
	Matching       Status = "matching"
	Differences    Status = "differences"
	SourceNotFound Status = "source_not_found"
	Errored        Status = "errored"
)

// Statuses lists every status in display order.
var Statuses = []Status{Matching, Differences, SourceNotFound, Errored}

// Statistics counts the paths of each category.
type Statistics struct {
	ArtifactOnly     int `json:"artifact_only"`
	SourceOnly       int `json:"source_only"`
	Modified         int `json:"modified"`
	TotalDifferences int `json:"total_differences"`
}

// Files lists the paths of each category.
type Files struct {
	ArtifactOnly []string `json:"artifact_only"`
	SourceOnly   []string `json:"source_only"`
	Modified     []string `json:"modified"`
}

// Record is the serializable outcome of one verification.
type Record struct {
	Package      string     `json:"package"`
	Version      string     `json:"version,omitempty"`
	Repository   string     `json:"repository,omitempty"`
	Tag          string     `json:"tag,omitempty"`
	TagCandidate string     `json:"tag_candidate,omitempty"`
	Checksum     string     `json:"artifact_checksum,omitempty"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
	SourcePath   string     `json:"source_path,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	DurationMS   int64      `json:"duration_ms"`
	Status       Status     `json:"status"`
	Identical    bool       `json:"identical"`
	Summary      string     `json:"summary,omitempty"`
	DiffFile     string     `json:"diff_file,omitempty"`
	Statistics   Statistics `json:"statistics"`
	Files        Files      `json:"files"`
	Error        string     `json:"error,omitempty"`

	// Diff is kept for HTML and archive output only.
	Diff string `json:"-"`
}

// FromResult builds a record from a completed comparison.
func FromResult(pkg, version string, res *reconcile.Result) Record {
	status := Differences
	if res.Identical {
		status = Matching
	}
	return Record{
		Package:   pkg,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Identical: res.Identical,
		Summary:   res.Summary,
		Statistics: Statistics{
			ArtifactOnly:     len(res.ArtifactOnly),
			SourceOnly:       len(res.SourceOnly),
			Modified:         len(res.Modified),
			TotalDifferences: res.Total(),
		},
		Files: Files{
			ArtifactOnly: nonNil(res.ArtifactOnly),
			SourceOnly:   nonNil(res.SourceOnly),
			Modified:     nonNil(res.Modified),
		},
		Diff: res.Diff,
	}
}

// Failed builds a record for a verification that could not complete.
func Failed(pkg, version string, status Status, err error) Record {
	r := Record{
		Package:   pkg,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Files:     Files{ArtifactOnly: []string{}, SourceOnly: []string{}, Modified: []string{}},
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Name is "package-version", or the package alone when the version is unknown.
func (r Record) Name() string {
	if r.Version == "" {
		return r.Package
	}
	return r.Package + "-" + r.Version
}

// Verified reports whether a comparison ran.
func (r Record) Verified() bool {
	return r.Status == Matching || r.Status == Differences
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
