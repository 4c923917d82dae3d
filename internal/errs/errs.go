package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the taxonomy bucket of an error. Kinds map one-to-one onto envelope codes.
type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindAuthRequired       Kind = "AUTH_REQUIRED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindVehicleUnavailable Kind = "VEHICLE_UNAVAILABLE"
	KindCodeDuplicate      Kind = "RESERVATION_CODE_DUPLICATE"
	KindStatusInvalid      Kind = "RESERVATION_STATUS_INVALID"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindInternal           Kind = "INTERNAL"
)

// CodeInvalidRange is the machine code of a VALIDATION error on start >= end.
const CodeInvalidRange = "INVALID_RANGE"

// Error is the single error type surfaced by the engine and its collaborators.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

func statusOf(k Kind) int {
	switch k {
	case KindValidation, KindStatusInvalid:
		return http.StatusBadRequest
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindVehicleUnavailable, KindCodeDuplicate:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// New builds an error of kind k with the kind's default status.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Code: string(k), Message: fmt.Sprintf(format, args...), Status: statusOf(k)}
}

// Wrap builds an error of kind k around err.
func Wrap(k Kind, err error, format string, args ...any) *Error {
	e := New(k, format, args...)
	e.Err = err
	return e
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// InvalidRange is raised when start is not before end.
func InvalidRange(format string, args ...any) *Error {
	e := New(KindValidation, format, args...)
	e.Code = CodeInvalidRange
	return e
}

func AuthRequired() *Error {
	return New(KindAuthRequired, "authentication required")
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func VehicleUnavailable(format string, args ...any) *Error {
	return New(KindVehicleUnavailable, format, args...)
}

func CodeDuplicate(format string, args ...any) *Error {
	return New(KindCodeDuplicate, format, args...)
}

// StatusInvalid is an illegal transition (400).
func StatusInvalid(format string, args ...any) *Error {
	return New(KindStatusInvalid, format, args...)
}

// StatusConflict is a transition lost to a concurrent writer (409).
func StatusConflict(format string, args ...any) *Error {
	e := New(KindStatusInvalid, format, args...)
	e.Status = http.StatusConflict
	return e
}

// Internal wraps an unexpected error.
func Internal(err error, format string, args ...any) *Error {
	return Wrap(KindInternal, err, format, args...)
}

// As extracts the *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, INTERNAL for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine code of err.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return string(KindInternal)
}

// StatusOf returns the HTTP status of err.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}
