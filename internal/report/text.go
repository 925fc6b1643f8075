package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/go-units"
)

// WriteText prints a human-readable report of one record.
func WriteText(w io.Writer, r Record, c *Colorizer) error {
	if c == nil {
		c = NewColorizer(false)
	}

	var b strings.Builder
	if r.Package != "" {
		b.WriteString(c.Bold("=== Sourcecode Verification Report ===") + "\n")
		if r.Version != "" {
			fmt.Fprintf(&b, "Gem: %s (%s)\n", r.Package, r.Version)
		} else {
			fmt.Fprintf(&b, "Gem: %s\n", r.Package)
		}
		if r.Repository != "" {
			fmt.Fprintf(&b, "Repository: %s\n", r.Repository)
		}
		if r.Tag != "" {
			fmt.Fprintf(&b, "Tag: %s %s\n", r.Tag, c.Info("("+r.TagCandidate+")"))
		}
		if r.ArtifactPath != "" {
			fmt.Fprintf(&b, "Artifact: %s\nSource: %s\n", r.ArtifactPath, r.SourcePath)
		}
		if r.Checksum != "" {
			fmt.Fprintf(&b, "Checksum: %s\n", r.Checksum)
		}
		fmt.Fprintf(&b, "Timestamp: %s\n\n", r.Timestamp.Format(time.RFC3339))
	}

	if !r.Verified() {
		fmt.Fprintf(&b, "%s %s: %s\n", c.Symbol(r.Status), c.Status(r.Status), r.Error)
		_, err := io.WriteString(w, b.String())
		return err
	}

	if r.Identical {
		b.WriteString(c.Success(r.Summary) + "\n")
	} else {
		b.WriteString(c.Failure(r.Summary) + "\n")
	}
	b.WriteString("\n")

	if !r.Identical {
		listing(&b, fmt.Sprintf("Files only in gem (%d):", len(r.Files.ArtifactOnly)), "+", r.Files.ArtifactOnly, c.Success)
		listing(&b, fmt.Sprintf("Files only in source (%d):", len(r.Files.SourceOnly)), "-", r.Files.SourceOnly, c.Failure)
		listing(&b, fmt.Sprintf("Modified files (%d):", len(r.Files.Modified)), "~", r.Files.Modified, c.Warning)

		if r.DiffFile != "" {
			fmt.Fprintf(&b, "Detailed diff saved to: %s (%s)\n", r.DiffFile, units.HumanSize(float64(len(r.Diff))))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func listing(b *strings.Builder, title, mark string, files []string, paint func(string) string) {
	if len(files) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, f := range files {
		fmt.Fprintf(b, "  %s %s\n", paint(mark), f)
	}
	b.WriteString("\n")
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// JSONFileName is the default name for a saved JSON report.
func JSONFileName(r Record) string {
	suffix := r.Version
	if suffix == "" {
		suffix = r.Timestamp.Format("20060102_150405")
	}
	pkg := r.Package
	if pkg == "" {
		pkg = "local"
	}
	return fmt.Sprintf("sourcecode_verification_%s_%s.json", pkg, suffix)
}
