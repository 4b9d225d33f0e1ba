// Package cerrors classifies the failure modes the coordination layer can
// surface: invalid arguments at the API boundary, and producer failures
// that must reach both the computing caller and any concurrent readers.
package cerrors

import (
	"errors"
	"fmt"
)

// Unchecked is implemented by errors that should be re-raised verbatim to
// concurrent Get waiters rather than wrapped in a ProducerError. Producer
// errors that don't implement it are treated as checked and always wrapped.
type Unchecked interface {
	error
	Unchecked() bool
}

// ErrInvalidArgument is the sentinel compared against with errors.Is.
// Boundary checks (nil key, nil producer, negative durations) wrap this
// with context via InvalidArgument.
var ErrInvalidArgument = errors.New("ccache: invalid argument")

// invalidArgument wraps ErrInvalidArgument with a message and implements
// Unchecked, since a caller's own programming error should never be
// silently re-wrapped for a reader to puzzle over.
type invalidArgument struct {
	msg string
}

func (e *invalidArgument) Error() string   { return "ccache: invalid argument: " + e.msg }
func (e *invalidArgument) Unwrap() error   { return ErrInvalidArgument }
func (e *invalidArgument) Unchecked() bool { return true }

// InvalidArgument builds an error satisfying errors.Is(err, ErrInvalidArgument)
// and Unchecked.
func InvalidArgument(format string, args ...any) error {
	return &invalidArgument{msg: fmt.Sprintf(format, args...)}
}

// ProducerError wraps a producer's failure for delivery to the caller of
// ComputeAndPut, and to Get's waiters when the cause is not Unchecked.
type ProducerError struct {
	Cause error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("ccache: producer failed: %v", e.Cause)
}

func (e *ProducerError) Unwrap() error {
	return e.Cause
}

// Wrap builds the wrapped execution error returned to the caller of a
// computation that failed. If cause is already a *ProducerError it is
// returned unchanged rather than double wrapped.
func Wrap(cause error) *ProducerError {
	var pe *ProducerError
	if errors.As(cause, &pe) {
		return pe
	}
	return &ProducerError{Cause: cause}
}

// IsInvalidArgument reports whether err is, or wraps, ErrInvalidArgument —
// the boundary check collaborators (like cmd/ccachectl's admin handlers)
// use to pick an HTTP status without depending on cerrors' internal types.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// DeliverToReader renders a producer failure the way a concurrent Get
// waiter should observe it: unchecked causes re-raise directly, everything
// else is wrapped in a ProducerError, preserving the distinction between
// unchecked and checked propagation.
func DeliverToReader(cause error) error {
	var unchecked Unchecked
	if errors.As(cause, &unchecked) && unchecked.Unchecked() {
		return cause
	}
	return Wrap(cause)
}
