package reconcile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	identicalSummary = "✓ Artifact and source are identical"
	differsSummary   = "⚠ Differences found:"
)

func summarize(r *Result) string {
	if r.Identical {
		return identicalSummary
	}

	var b strings.Builder
	b.WriteString(differsSummary)
	if n := len(r.ArtifactOnly); n > 0 {
		fmt.Fprintf(&b, "\n  - %d file(s) only in artifact", n)
	}
	if n := len(r.SourceOnly); n > 0 {
		fmt.Fprintf(&b, "\n  - %d file(s) only in source", n)
	}
	if n := len(r.Modified); n > 0 {
		fmt.Fprintf(&b, "\n  - %d file(s) modified", n)
	}
	return b.String()
}

var summaryCount = regexp.MustCompile(`(\d+) file\(s\)`)

// ParseSummaryTotal adds up the file counts stated in a summary line.
func ParseSummaryTotal(summary string) int {
	total := 0
	for _, m := range summaryCount.FindAllStringSubmatch(summary, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			total += n
		}
	}
	return total
}
