package app

import (
	"errors"
	"fmt"

	"github.com/thebtf/gatebook/internal/domain"
)

// Stable caller-facing error set. Known errors pass through use cases
// untouched; anything else is wrapped in an ExecutionError.
var (
	// ErrSessionNotFound is returned when a session lookup yields no record.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive is returned when a client message arrives for a
	// session that is no longer Active.
	ErrSessionNotActive = errors.New("session not active")

	// ErrRequestNotFound is returned when a request lookup yields no record.
	ErrRequestNotFound = errors.New("request not found")
)

// ExecutionError wraps an unrecognized failure (repository I/O, unexpected
// error) with the use case and operation that produced it. The original cause
// is preserved for diagnostics and reachable via errors.Unwrap.
type ExecutionError struct {
	UseCase string
	Op      string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.UseCase, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// knownError reports whether err belongs to the stable vocabulary that passes
// through unwrapped.
func knownError(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, domain.ErrInvalidSessionState) ||
		errors.Is(err, domain.ErrInvalidRequestState)
}

// wrapError applies the propagation policy: known errors pass through,
// everything else is wrapped with use case and operation context.
func wrapError(useCase, op string, err error) error {
	if knownError(err) {
		return err
	}
	return &ExecutionError{UseCase: useCase, Op: op, Err: err}
}
