// Package apperr classifies failures so handlers can map them to responses
// without inspecting driver errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable failure class.
type Kind string

const (
	KindValidation  Kind = "VALIDATION"
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindUnavailable Kind = "UNAVAILABLE"
)

// MsgSaveFailed is the single user-facing message for store failures.
const MsgSaveFailed = "gagal menyimpan, coba lagi"

// Error carries a kind, a user-facing message and optional per-field messages.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a per-field validation error.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "data tidak valid", Fields: fields}
}

// Field is shorthand for a validation error on one field.
func Field(name, msg string) *Error {
	return Validation(map[string]string{name: msg})
}

// NotFound reports a missing record.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict reports a uniqueness or state conflict.
func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

// ConflictField reports a conflict caused by one field's value, such as an
// identifier that is already taken.
func ConflictField(name, msg string, err error) *Error {
	e := Conflict(msg, err)
	e.Fields = map[string]string{name: msg}
	return e
}

// Unavailable wraps a store or dependency failure. The caller-facing
// message is always MsgSaveFailed.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: MsgSaveFailed, Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body renders err as a JSON-friendly map. Wrapped causes are never exposed.
func Body(err error) map[string]any {
	var e *Error
	if !errors.As(err, &e) {
		return map[string]any{"error": MsgSaveFailed}
	}
	body := map[string]any{"error": e.Message, "code": string(e.Kind)}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	return body
}
