package pipeline

import (
	"fmt"
)

// ClassificationUnavailableError means both classification strategies failed.
// The rule strategy cannot fail by construction, so seeing this error is an
// invariant violation, not an expected runtime condition.
type ClassificationUnavailableError struct {
	Err error
}

func (e *ClassificationUnavailableError) Error() string {
	return fmt.Sprintf("no classification strategy available: %v", e.Err)
}

func (e *ClassificationUnavailableError) Unwrap() error { return e.Err }
