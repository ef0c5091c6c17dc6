package detection

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoBackends is returned when a loader has nothing to try.
	ErrNoBackends = errors.New("detection: no backends configured")

	// ErrModelNotFound is returned when the model file is missing and cannot be fetched.
	ErrModelNotFound = errors.New("detection: model file not found")

	// ErrModelLoad is returned when a backend cannot initialize the network.
	ErrModelLoad = errors.New("detection: model failed to load")

	// ErrEmptyImage is returned when the detector is handed an empty frame.
	ErrEmptyImage = errors.New("detection: empty image")

	// ErrInvalidPrediction is returned for malformed detector output.
	ErrInvalidPrediction = errors.New("detection: invalid prediction")

	// ErrClosed is returned when a closed detector is used.
	ErrClosed = errors.New("detection: detector closed")
)

// BackendError wraps an error with the backend that produced it.
type BackendError struct {
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("detection [%s]: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// LoadError aggregates failures from every backend a loader tried.
type LoadError struct {
	Errors []error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if len(e.Errors) == 0 {
		return "detection loader: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("detection loader: %v", e.Errors[0])
	}
	return fmt.Sprintf("detection loader: all %d backends failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns every backend error so errors.Is matches any of them.
func (e *LoadError) Unwrap() []error {
	return e.Errors
}
