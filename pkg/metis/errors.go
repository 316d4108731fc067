package metis

import (
	"errors"
	"fmt"
)

// ErrAttemptsExhausted is returned when randomized splitting keeps being
// rejected by the backend.
var ErrAttemptsExhausted = errors.New("partitioner attempts exhausted")

// InputError reports that the partitioner rejected its input: a malformed
// adjacency list or more parts than nodes. Randomized splits retry on it
// with a fresh seed; deterministic splits return it.
type InputError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("partitioner input error: %s: %v", e.Reason, e.Err)
	}
	return "partitioner input error: " + e.Reason
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is, or wraps, an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
