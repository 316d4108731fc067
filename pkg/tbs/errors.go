package tbs

import (
	"errors"
	"fmt"
)

// ErrCapacityExhausted is returned when no capacity factor up to the
// attempt bound produced a partition.
var ErrCapacityExhausted = errors.New("partition capacity exhausted")

// ProcessError reports a failed partitioner run: a non-zero exit or a
// fatal diagnostic in stderr. The caller moves on to the next factor.
type ProcessError struct {
	Factor   float64
	Capacity int
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("tbs failed at capacity %d (factor %.2f)", e.Capacity, e.Factor)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IntegrityError reports a block id outside the declared machines. It
// aborts the split.
type IntegrityError struct {
	Line  int
	Block int
	K     int
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("tbs result line %d names block %d, only %d machines declared", e.Line, e.Block, e.K)
}
