package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTopicNotFound signals a missing topic (repository or index entry).
	ErrTopicNotFound = errors.New("topic not found")
	// ErrTopicExists signals a topic with the same title already exists in the semester.
	ErrTopicExists = errors.New("topic already exists")
	// ErrInvalidTopic signals a malformed topic or check request.
	ErrInvalidTopic = errors.New("invalid topic")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrConfiguration signals a deployment error with no safe default.
	ErrConfiguration = errors.New("configuration error")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGeneratorError signals a text generation provider failure.
	ErrGeneratorError = errors.New("generator error")
	// ErrIndexUnavailable signals that the similarity index could not be queried.
	ErrIndexUnavailable = errors.New("similarity index unavailable")
)

// DimensionError wraps ErrVectorDimMismatch with the offending sizes.
type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrVectorDimMismatch.Error(), e.Expected, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimensionError creates a dimension mismatch error.
func NewDimensionError(expected, got int) error {
	return &DimensionError{Expected: expected, Got: got}
}

// IsFatal reports whether err belongs to the configuration class that must fail a request.
func IsFatal(err error) bool {
	return errors.Is(err, ErrVectorDimMismatch) || errors.Is(err, ErrConfiguration)
}
