package topology

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by FormatError.
var (
	ErrMalformedLine  = errors.New("malformed line")
	ErrInvalidNodeID  = errors.New("invalid node id")
	ErrDuplicateNode  = errors.New("node declared twice")
	ErrUndeclaredNode = errors.New("edge references undeclared node")
	ErrSelfLoop       = errors.New("self loop")
	ErrUnmatchedLink  = errors.New("cross-partition link not matched by exactly one peer")
	ErrEmptyTopology  = errors.New("topology declares no nodes")
)

// FormatError reports a malformed topology or sub-topology file.
// It is never retried.
type FormatError struct {
	Path  string // file name, empty when parsing a reader
	Line  int    // 1-based line, 0 when not line specific
	Cause error
	Msg   string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	where := e.Path
	if where == "" {
		where = "<input>"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Msg != "" {
		return fmt.Sprintf("topology format error at %s: %v: %s", where, e.Cause, e.Msg)
	}
	return fmt.Sprintf("topology format error at %s: %v", where, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *FormatError) Unwrap() error {
	return e.Cause
}

// IsFormatError reports whether err is, or wraps, a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
