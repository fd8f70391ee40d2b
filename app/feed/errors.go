package feed

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidLink          = errors.New("link is not an absolute URL")
	ErrFiltered             = errors.New("excluded by feed filter")
)

// SkipError explains why an entry did not become an article.
// Skips are expected outcomes, not failures.
type SkipError struct {
	Field  string
	Reason error
	Detail string
}

func (e *SkipError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Reason, e.Field, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Field)
}

func (e *SkipError) Unwrap() error {
	return e.Reason
}

// IsSkip reports whether err is a per-entry skip rather than a failure.
func IsSkip(err error) bool {
	var skipErr *SkipError
	return errors.As(err, &skipErr)
}

// FetchError is a transport-level failure for a whole feed.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
