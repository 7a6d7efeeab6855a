// Package apperr defines the error taxonomy shared by services, repositories
// and the HTTP boundary.
//
// Every error that reaches a handler is classified into exactly one Kind, and
// the boundary renders it as a {message, status_code} JSON body.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Kind classifies an application error
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindCannotCreate    Kind = "cannot_create"
	KindServerError     Kind = "server_error"
	KindBadRequest      Kind = "bad_request"
	KindForbidden       Kind = "forbidden"
	KindValidation      Kind = "validation"
	KindUnauthorized    Kind = "unauthorized"
	KindNotAcceptable   Kind = "not_acceptable"
	KindTooManyRequests Kind = "too_many_requests"
)

// ForbiddenMessage is the only detail a permission denial carries.
const ForbiddenMessage = "Forbidden!"

// uniqueViolation is the postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// Error is an application error with a user-visible message and an optional
// internal cause that is logged but never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// StatusCode maps the error kind to an HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindCannotCreate:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotAcceptable:
		return http.StatusNotAcceptable
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrCannotCreate  = &Error{Kind: KindCannotCreate}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrServer        = &Error{Kind: KindServerError}
	ErrBadRequest    = &Error{Kind: KindBadRequest}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrNotAcceptable = &Error{Kind: KindNotAcceptable}
)

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func CannotCreate(message string, cause error) *Error {
	return &Error{Kind: KindCannotCreate, Message: message, Err: cause}
}

func ServerError(message string, cause error) *Error {
	return &Error{Kind: KindServerError, Message: message, Err: cause}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Forbidden returns a permission denial. An empty message becomes "Forbidden!".
func Forbidden(message string) *Error {
	if message == "" {
		message = ForbiddenMessage
	}
	return &Error{Kind: KindForbidden, Message: message}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NotAcceptable(message string) *Error {
	return &Error{Kind: KindNotAcceptable, Message: message}
}

func TooManyRequests(message string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: message}
}

// From classifies an arbitrary error. Application errors pass through
// unchanged; sql.ErrNoRows becomes NotFound and duplicate keys become
// CannotCreate. Everything else is a ServerError.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Kind: KindNotFound, Message: "Not found", Err: err}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &Error{Kind: KindCannotCreate, Message: "Already exists", Err: err}
	}
	return &Error{Kind: KindServerError, Message: "Internal server error", Err: err}
}

// Response is the JSON body rendered for every error
type Response struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// ToResponse renders the user-visible part of err
func ToResponse(err error) Response {
	appErr := From(err)
	return Response{
		Message:    appErr.Message,
		StatusCode: appErr.StatusCode(),
	}
}
