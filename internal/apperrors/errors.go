// Package apperrors defines the error kinds returned by the scheduling and ledger services.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies an application error.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodePrecondition ErrorCode = "PRECONDITION_FAILED"
	CodePartialWrite ErrorCode = "PARTIAL_WRITE"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
)

// Error is a classified application error. Field is set for validation failures.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works
// for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

var (
	ErrValidation   = &Error{Code: CodeValidation}
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrPrecondition = &Error{Code: CodePrecondition}
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
	ErrForbidden    = &Error{Code: CodeForbidden}
)

func Validation(field, format string, args ...interface{}) error {
	return &Error{Code: CodeValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id interface{}) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

func Precondition(format string, args ...interface{}) error {
	return &Error{Code: CodePrecondition, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// PartialWriteError reports a multi-record write that stopped partway. Written counts
// the records that were persisted; Remaining names what still needs to be written or
// deleted so the caller can retry just that part.
type PartialWriteError struct {
	Operation string   `json:"operation"`
	Written   int      `json:"written"`
	Total     int      `json:"total"`
	Remaining []string `json:"remaining"`
	Err       error    `json:"-"`
}

func (e *PartialWriteError) Error() string {
	msg := fmt.Sprintf("%s: %s interrupted after %d of %d records", CodePartialWrite, e.Operation, e.Written, e.Total)
	if len(e.Remaining) > 0 {
		msg += " (remaining: " + strings.Join(e.Remaining, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// Warning is a non-blocking integrity notice attached to a successful result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnServiceNotCompleted = "SERVICE_NOT_COMPLETED"
	WarnWorkerMissingPhone  = "WORKER_MISSING_PHONE"
	WarnDeliveryFailed      = "DELIVERY_FAILED"
)

// CodeOf returns the code of a classified error, or "" for anything else.
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var partial *PartialWriteError
	if errors.As(err, &partial) {
		return CodePartialWrite
	}
	return ""
}
