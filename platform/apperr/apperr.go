// Package apperr defines the typed errors the service layers hand back to
// transport. Each error carries a Kind so the HTTP layer can pick a status
// code without inspecting message text.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind classifies an error for status-code mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindBadRequest
	KindUnavailable
	KindInternal
)

var kindStatus = map[Kind]int{
	KindNotFound:    http.StatusNotFound,
	KindValidation:  http.StatusBadRequest,
	KindBadRequest:  http.StatusBadRequest,
	KindUnavailable: http.StatusBadGateway,
	KindInternal:    http.StatusInternalServerError,
}

// Error is a categorized application error, optionally wrapping a cause.
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

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the Kind to a response status. Unknown kinds read as a
// client mistake rather than a server fault.
func (e *Error) HTTPStatus() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound reports a missing resource.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Validation reports input that failed validation rules.
func Validation(message string) *Error { return New(KindValidation, message) }

// BadRequest reports a malformed request.
func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// Unavailable reports a downstream dependency failure.
func Unavailable(message string) *Error { return New(KindUnavailable, message) }

// Internal reports an unexpected server-side failure.
func Internal(message string) *Error { return New(KindInternal, message) }
