package planning

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no record exists for the requested meeting id.
var ErrNotFound = errors.New("meeting not found")

// GenerationError indicates the pipeline could not produce a valid plan:
// the completion capability failed, or the output failed schema validation
// even after one repair round-trip.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("plan generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError wraps an error as a plan generation failure.
func NewGenerationError(err error) *GenerationError {
	return &GenerationError{Err: err}
}

// IsGenerationError checks if an error is a plan generation failure.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
