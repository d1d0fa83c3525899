package analysis

import "errors"

// Sentinel errors for pipeline setup and input validation.
var (
	// ErrInvalidImage is returned when the input image is empty,
	// has zero area, or could not be decoded.
	ErrInvalidImage = errors.New("analysis: invalid input image")

	// ErrInvalidConfig is returned for a non-positive batch size or
	// an otherwise unusable configuration.
	ErrInvalidConfig = errors.New("analysis: invalid configuration")

	// ErrMissingBackend is returned when a required backend was not
	// provided at construction.
	ErrMissingBackend = errors.New("analysis: missing inference backend")
)
