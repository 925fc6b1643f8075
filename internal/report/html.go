package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/docker/go-units"

	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
)

// MaxHTMLDiffBytes caps how much of each diff is embedded in an HTML page.
const MaxHTMLDiffBytes = 50000

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"humanize": func(s Status) string {
		words := strings.Fields(strings.ReplaceAll(string(s), "_", " "))
		for i, w := range words {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
		return strings.Join(words, " ")
	},
	"seconds": func(ms int64) string { return fmt.Sprintf("%.2f", float64(ms)/1000) },
}).ParseFS(templateFS, "templates/report.html.tmpl"))

// HTMLOptions controls page rendering.
type HTMLOptions struct {
	Title string
	// Display hides matching paths from the file listings. Nil shows all.
	Display   *rules.RuleSet
	Generated time.Time
}

type htmlEntry struct {
	Record
	Index        int
	ArtifactOnly []string
	SourceOnly   []string
	Modified     []string
	Hidden       int
	ShownDiff    string
	Truncated    bool
	DiffSize     string
}

type htmlPage struct {
	Title     string
	Generated string
	Total     int
	Counts    map[string]int
	Entries   []htmlEntry
}

// WriteHTML renders a self-contained page for a batch of records, sorted by
// package name.
func WriteHTML(w io.Writer, records []Record, opts HTMLOptions) error {
	if opts.Title == "" {
		opts.Title = "Sourcecode Verification Report"
	}
	if opts.Generated.IsZero() {
		opts.Generated = time.Now()
	}

	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Package < sorted[j].Package })

	sum := Summarize(records)
	page := htmlPage{
		Title:     opts.Title,
		Generated: opts.Generated.Format("January 02, 2006 at 03:04 PM"),
		Total:     sum.Total,
		Counts:    make(map[string]int, len(sum.Counts)),
		Entries:   make([]htmlEntry, 0, len(sorted)),
	}
	for st, n := range sum.Counts {
		page.Counts[string(st)] = n
	}
	for i, r := range sorted {
		e := htmlEntry{Record: r, Index: i}
		var hidden int
		e.ArtifactOnly, hidden = visible(r.Files.ArtifactOnly, opts.Display)
		e.Hidden += hidden
		e.SourceOnly, hidden = visible(r.Files.SourceOnly, opts.Display)
		e.Hidden += hidden
		e.Modified, hidden = visible(r.Files.Modified, opts.Display)
		e.Hidden += hidden

		e.ShownDiff, e.Truncated = TruncateDiff(r.Diff, MaxHTMLDiffBytes)
		if r.Diff != "" {
			e.DiffSize = units.HumanSize(float64(len(r.Diff)))
		}
		page.Entries = append(page.Entries, e)
	}

	if err := htmlTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}
	return nil
}

func visible(files []string, display *rules.RuleSet) ([]string, int) {
	if display == nil {
		return files, 0
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if !display.Matches(f) {
			out = append(out, f)
		}
	}
	return out, len(files) - len(out)
}

// TruncateDiff cuts s to at most max bytes on a line boundary when possible.
func TruncateDiff(s string, max int) (string, bool) {
	if len(s) <= max {
		return s, false
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i+1]
	}
	return cut, true
}
