package reconcile

import "fmt"

// Side names one of the two trees being reconciled.
type Side string

const (
	SideArtifact Side = "artifact"
	SideSource   Side = "source"
)

// ComparisonIOError is a read failure on one side of a common path. It never
// aborts a comparison; the path is reported as modified instead.
type ComparisonIOError struct {
	Side Side
	Path string
	Err  error
}

func (e *ComparisonIOError) Error() string {
	return fmt.Sprintf("reading %s file %q: %v", e.Side, e.Path, e.Err)
}

func (e *ComparisonIOError) Unwrap() error { return e.Err }

// Observer receives the conditions a comparison tolerates instead of failing.
type Observer interface {
	TreeMissing(side Side, root string)
	PathFailed(err *ComparisonIOError)
	DiffFailed(path string, err error)
}

// NopObserver discards every notification.
type NopObserver struct{}

func (NopObserver) TreeMissing(Side, string)      {}
func (NopObserver) PathFailed(*ComparisonIOError) {}
func (NopObserver) DiffFailed(string, error)      {}
