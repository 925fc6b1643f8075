package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrieval is matched by every *RetrievalError.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrRepositoryNotFound marks a package whose source repository could
	// not be located.
	ErrRepositoryNotFound = errors.New("source repository not found")
)

// RetrievalError is a failure to obtain an artifact, a tag listing or a
// source snapshot from a remote service.
type RetrievalError struct {
	Op     string
	Target string
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool {
	return target == ErrRetrieval
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}
