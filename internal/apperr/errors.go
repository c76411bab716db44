// Package apperr defines the error kinds surfaced by the API and their
// HTTP status mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind string

const (
	KindUnauthenticated    Kind = "Unauthenticated"
	KindForbidden          Kind = "Forbidden"
	KindValidation         Kind = "ValidationFailed"
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindDeadlineOutOfRange Kind = "DeadlineOutOfRange"
	KindInvalidStatus      Kind = "InvalidStatus"
	KindAssigneeNotFound   Kind = "AssigneeNotFound"
	KindAssigneeNotMember  Kind = "AssigneeNotMember"
	KindRateLimited        Kind = "RateLimited"
	KindInternal           Kind = "Internal"
)

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

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.NotFound("")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }
func Forbidden(message string) *Error       { return New(KindForbidden, message) }
func Validation(message string) *Error      { return New(KindValidation, message) }
func NotFound(message string) *Error        { return New(KindNotFound, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }

// KindOf reports the kind carried by err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	if IsUniqueViolation(err) {
		return KindConflict
	}
	return KindInternal
}

// Message returns the user-facing message for err. Internal errors never
// expose their cause.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	switch KindOf(err) {
	case KindNotFound:
		return "Resource not found"
	case KindConflict:
		return "Resource already exists"
	}
	return "Internal server error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation, KindInvalidStatus:
		return http.StatusBadRequest
	case KindNotFound, KindAssigneeNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDeadlineOutOfRange, KindAssigneeNotMember:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

const pgUniqueViolation = "23505"

// IsUniqueViolation recognises unique-constraint failures from postgres
// (pgx) and sqlite, with or without gorm's error translation enabled.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
