// Package apperr is the error taxonomy shared by the stores, the services and
// the HTTP layer. Business-rule failures carry a Kind and a user-facing
// message; anything else is treated as an infrastructure failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers and for HTTP mapping.
type Kind string

const (
	KindValidation  Kind = "VALIDATION_ERROR"
	KindPastDate    Kind = "PAST_DATE"
	KindHorizon     Kind = "HORIZON_EXCEEDED"
	KindDateBlocked Kind = "DATE_BLOCKED"
	KindInvalidTok  Kind = "INVALID_TOKEN"
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindConcurrency Kind = "CONCURRENCY_CONFLICT"
	KindTransient   Kind = "SERVICE_UNAVAILABLE"
)

// Error is a classified failure. Message is safe to show to end users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrPastDate        = &Error{Kind: KindPastDate, Message: "date is in the past"}
	ErrHorizonExceeded = &Error{Kind: KindHorizon, Message: "date is beyond the editing horizon"}
	ErrDateBlocked     = &Error{Kind: KindDateBlocked, Message: "date is blocked by the administrator"}
	ErrInvalidToken    = &Error{Kind: KindInvalidTok, Message: "invitation is invalid or expired"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict"}
	ErrConcurrency     = &Error{Kind: KindConcurrency, Message: "concurrent modification, please retry"}
	ErrValidation      = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrTransient       = &Error{Kind: KindTransient, Message: "service temporarily unavailable"}
)

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Transient wraps a storage or network failure.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindTransient, Message: "failed to " + op, Err: err}
}

// Concurrency marks a lost compare-and-swap or uniqueness race.
func Concurrency(err error) error {
	return &Error{Kind: KindConcurrency, Message: ErrConcurrency.Message, Err: err}
}

// KindOf returns the Kind of err, KindTransient for unclassified errors and
// "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransient
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ErrTransient.Message
}

// IsBusiness reports whether err is a rule violation rather than an
// infrastructure failure.
func IsBusiness(err error) bool {
	k := KindOf(err)
	return k != "" && k != KindTransient
}
