package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/docker/go-units"
	"github.com/gosuri/uitable"
)

// Summary counts records per status.
type Summary struct {
	Total  int            `json:"total"`
	Counts map[Status]int `json:"counts"`
}

// Summarize tallies records by status.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records), Counts: make(map[Status]int, len(Statuses))}
	for _, st := range Statuses {
		s.Counts[st] = 0
	}
	for _, r := range records {
		s.Counts[r.Status]++
	}
	return s
}

// WriteTable prints one row per record followed by the status totals.
func WriteTable(w io.Writer, records []Record, c *Colorizer) error {
	if c == nil {
		c = NewColorizer(false)
	}

	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	table.AddRow("", "GEM", "VERSION", "STATUS", "DIFFERENCES", "DIFF", "TIME")
	for _, r := range records {
		diffs, size := "-", "-"
		if r.Verified() {
			diffs = strconv.Itoa(r.Statistics.TotalDifferences)
		}
		if r.Diff != "" {
			size = units.HumanSize(float64(len(r.Diff)))
		}
		table.AddRow(c.Symbol(r.Status), r.Package, r.Version, c.Status(r.Status), diffs, size,
			fmt.Sprintf("%.2fs", float64(r.DurationMS)/1000))
	}
	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}

	sum := Summarize(records)
	totals := uitable.New()
	totals.AddRow("Total:", strconv.Itoa(sum.Total))
	totals.AddRow(c.Success("Matching:"), strconv.Itoa(sum.Counts[Matching]))
	totals.AddRow(c.Failure("Differences:"), strconv.Itoa(sum.Counts[Differences]))
	totals.AddRow(c.Warning("Source not found:"), strconv.Itoa(sum.Counts[SourceNotFound]))
	totals.AddRow(c.Failure("Errored:"), strconv.Itoa(sum.Counts[Errored]))
	_, err := fmt.Fprintf(w, "\n%s\n", totals)
	return err
}
