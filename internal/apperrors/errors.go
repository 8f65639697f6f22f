package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies failures by who is responsible for them.
type Kind string

const (
	KindClientInput  Kind = "client_input"
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindProcessing   Kind = "processing"
)

// AppError is the error type returned across service boundaries.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// WithDetail attaches a key/value pair to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is checks.
var (
	ErrClientInput = &AppError{Kind: KindClientInput}
	ErrProcessing  = &AppError{Kind: KindProcessing}
)

func ClientInput(message string) *AppError {
	return &AppError{Kind: KindClientInput, Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func RateLimited(message string) *AppError {
	return &AppError{Kind: KindRateLimited, Message: message}
}

func Processing(message string, err error) *AppError {
	return &AppError{Kind: KindProcessing, Message: message, Err: err}
}

// KindOf returns the kind of err, defaulting to processing for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindProcessing
}

// HTTPStatus maps err to the status code it is reported with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindClientInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
