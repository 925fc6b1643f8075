package verify

import (
	"errors"

	"github.com/benedictfischer09/sourcecode-verifier/internal/fetch"
	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
	"github.com/benedictfischer09/sourcecode-verifier/internal/tags"
)

// Classify maps a verification failure to a record status. A missing tag or
// repository means the source could not be found; anything else errored.
func Classify(err error) report.Status {
	if errors.Is(err, tags.ErrTagNotFound) || errors.Is(err, fetch.ErrRepositoryNotFound) {
		return report.SourceNotFound
	}
	return report.Errored
}
