package errors

import (
	"errors"
	"fmt"
)

// AppError is the typed failure returned by repositories and services.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError by kind, so errors.Is(err, ErrNotFound) works
// for any not-found error regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation   = &AppError{Kind: KindValidation}
	ErrConflict     = &AppError{Kind: KindConflict}
	ErrNotFound     = &AppError{Kind: KindNotFound}
	ErrPrecondition = &AppError{Kind: KindPrecondition}
	ErrParse        = &AppError{Kind: KindParse}
	ErrInternal     = &AppError{Kind: KindInternal}
)

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *AppError   { return New(KindValidation, message) }
func Conflict(message string) *AppError     { return New(KindConflict, message) }
func NotFound(message string) *AppError     { return New(KindNotFound, message) }
func Precondition(message string) *AppError { return New(KindPrecondition, message) }

func Parse(message string, err error) *AppError {
	return Wrap(KindParse, message, err)
}

func Internal(err error) *AppError {
	return Wrap(KindInternal, MsgInternal, err)
}

// KindOf reports the kind of err; untyped errors are internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// WithMessage keeps the kind of err but replaces the user-facing message.
// Untyped errors are returned unchanged.
func WithMessage(err error, message string) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: appErr.Kind, Message: message, Err: appErr.Err}
}
