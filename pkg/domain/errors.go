package domain

import (
	"errors"
	"fmt"

	xe "github.com/kshitizz36/Urumi-AI/pkg/errors"
)

// error taxonomy (§7): one error struct type per category, built with a
// message at the throw site by its NewX constructor. Callers classify
// with the AsX helpers (errors.As), never by string comparison.

type wrappingError struct {
	message  string
	causedBy error
}

func (e *wrappingError) format() string {
	if e.causedBy == nil {
		return e.message
	}
	if e.message == "" {
		return fmt.Sprintf("caused by: %+v", e.causedBy)
	}
	return fmt.Sprintf("%s / caused by: %+v", e.message, e.causedBy)
}

func as[E error](err error) bool {
	if err == nil {
		return false
	}
	p := new(E)
	return errors.As(err, p)
}

// ErrValidation: bad input shape. Maps to HTTP 400.
type ErrValidation wrappingError

var AsValidation = as[*ErrValidation]

func NewValidation(message string) error {
	return xe.WrapAsOuter(&ErrValidation{message: message}, 1)
}

func (e *ErrValidation) Error() string { return (*wrappingError)(e).format() }
func (e *ErrValidation) Unwrap() error { return e.causedBy }

// ErrNotFound: unknown id. Maps to HTTP 404.
type ErrNotFound wrappingError

var AsNotFound = as[*ErrNotFound]

func NewNotFound(message string) error {
	return xe.WrapAsOuter(&ErrNotFound{message: message}, 1)
}

func (e *ErrNotFound) Error() string { return (*wrappingError)(e).format() }
func (e *ErrNotFound) Unwrap() error { return e.causedBy }

// ErrConflict: active-cap breach or disallowed state transition. Maps to HTTP 409.
type ErrConflict wrappingError

var AsConflict = as[*ErrConflict]

func NewConflict(message string) error {
	return xe.WrapAsOuter(&ErrConflict{message: message}, 1)
}

func (e *ErrConflict) Error() string { return (*wrappingError)(e).format() }
func (e *ErrConflict) Unwrap() error { return e.causedBy }

// ErrRateLimited: per-IP or per-endpoint limit tripped. Maps to HTTP 429.
type ErrRateLimited wrappingError

var AsRateLimited = as[*ErrRateLimited]

func NewRateLimited(message string) error {
	return xe.WrapAsOuter(&ErrRateLimited{message: message}, 1)
}

func (e *ErrRateLimited) Error() string { return (*wrappingError)(e).format() }
func (e *ErrRateLimited) Unwrap() error { return e.causedBy }

// ErrGatewayError: cluster API exhausted its retries. Maps to HTTP 502.
type ErrGatewayError wrappingError

var AsGatewayError = as[*ErrGatewayError]

func NewGatewayError(message string) error {
	return xe.WrapAsOuter(&ErrGatewayError{message: message}, 1)
}

func NewGatewayErrorCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrGatewayError{message: message, causedBy: err}, 1)
}

func (e *ErrGatewayError) Error() string { return (*wrappingError)(e).format() }
func (e *ErrGatewayError) Unwrap() error { return e.causedBy }

// ErrDeadlineExceeded: shared per-run deadline exhausted. Maps to HTTP 504 at the edge.
type ErrDeadlineExceeded wrappingError

var AsDeadlineExceeded = as[*ErrDeadlineExceeded]

func NewDeadlineExceeded(message string) error {
	return xe.WrapAsOuter(&ErrDeadlineExceeded{message: message}, 1)
}

func (e *ErrDeadlineExceeded) Error() string { return (*wrappingError)(e).format() }
func (e *ErrDeadlineExceeded) Unwrap() error { return e.causedBy }

// ErrInternal: programming / unexpected error. Maps to HTTP 500.
type ErrInternal wrappingError

var AsInternal = as[*ErrInternal]

func NewInternal(message string) error {
	return xe.WrapAsOuter(&ErrInternal{message: message}, 1)
}

func NewInternalCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrInternal{message: message, causedBy: err}, 1)
}

func (e *ErrInternal) Error() string { return (*wrappingError)(e).format() }
func (e *ErrInternal) Unwrap() error { return e.causedBy }

// ErrInvalidStateChange: the requested status transition is not in the
// table in §4.8.
type ErrInvalidStateChange struct {
	From Status
	To   Status
}

func (e *ErrInvalidStateChange) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// AsInvalidStateChange maps to HTTP 409: the caller asked for a
// transition the §4.8 table doesn't permit from the record's current
// status (e.g. deleting a store still provisioning).
var AsInvalidStateChange = as[*ErrInvalidStateChange]
