package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the installation identity was not accepted.
	// Callers must trigger the re-consent flow, not retry blindly.
	ErrUnauthorized = errors.New("remote: unauthorized")

	// ErrForbidden means the server understood the request and refused it.
	ErrForbidden = errors.New("remote: forbidden")

	// ErrComeBackLater is the non-standard 477 response: the voting
	// window has not opened yet. Retryable later, never immediately.
	ErrComeBackLater = errors.New("remote: come back later")
)

// TransientError wraps network-level failures and server errors worth
// retrying: the row they concern stays pending and the periodic sweep
// will try again.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("remote: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried on the next sweep.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// RejectionError carries a permanent server-side rejection, typically a
// validation failure. The offending row stays pending but is not retried.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: rejected (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote: rejected (%d)", e.StatusCode)
}

// IsRejection reports whether err is a permanent server-side rejection.
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}
