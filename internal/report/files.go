package report

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	tmpFile = nil
	return nil
}

// SaveDiff writes r's diff to dir/<name>.diff and records the path. A record
// without a diff is left unchanged.
func SaveDiff(dir string, r *Record) (string, error) {
	if r.Diff == "" {
		return "", nil
	}
	path := filepath.Join(dir, r.Name()+".diff")
	if err := WriteFileAtomic(path, []byte(r.Diff), 0o644); err != nil {
		return "", fmt.Errorf("saving diff for %s: %w", r.Name(), err)
	}
	r.DiffFile = path
	return path, nil
}

// SaveJSON writes r to dir under JSONFileName.
func SaveJSON(dir string, r Record) (string, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		return "", err
	}
	path := filepath.Join(dir, JSONFileName(r))
	if err := WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("saving report: %w", err)
	}
	return path, nil
}

// HTMLFileName is the default name for a batch HTML page.
func HTMLFileName(at time.Time) string {
	return "sourcecode_verification_report_" + at.Format("20060102_150405") + ".html"
}

// WriteZip writes an archive holding index.html, report.json and the full
// diff of every record that has one under diffs/.
func WriteZip(w io.Writer, records []Record, opts HTMLOptions) error {
	zw := zip.NewWriter(w)

	index, err := zw.Create("index.html")
	if err != nil {
		return fmt.Errorf("creating archive entry: %w", err)
	}
	if err := WriteHTML(index, records, opts); err != nil {
		return err
	}

	summary, err := zw.Create("report.json")
	if err != nil {
		return fmt.Errorf("creating archive entry: %w", err)
	}
	if err := WriteJSON(summary, struct {
		Summary Summary  `json:"summary"`
		Results []Record `json:"results"`
	}{Summarize(records), records}); err != nil {
		return err
	}

	for _, r := range records {
		if r.Diff == "" {
			continue
		}
		f, err := zw.Create("diffs/" + r.Name() + ".diff")
		if err != nil {
			return fmt.Errorf("creating archive entry: %w", err)
		}
		if _, err := io.WriteString(f, r.Diff); err != nil {
			return fmt.Errorf("writing diff for %s: %w", r.Name(), err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}
