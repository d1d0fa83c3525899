package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common backend conditions.
var (
	// ErrNoCrops is returned when a batch call receives no crops.
	ErrNoCrops = errors.New("model: no crops provided")

	// ErrBatchTooLarge is returned when a batch exceeds the backend's
	// declared maximum.
	ErrBatchTooLarge = errors.New("model: batch exceeds maximum size")

	// ErrBadLandmarks is returned when alignment receives a landmark
	// set it cannot use.
	ErrBadLandmarks = errors.New("model: unusable landmarks for alignment")
)

// BackendError wraps a failure from an inference backend with the
// pipeline stage it occurred in.
type BackendError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("model [%s]: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with backend stage context.
func WrapError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Stage: stage, Err: err}
}
