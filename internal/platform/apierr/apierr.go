package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in the API envelope.
const (
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeUnsupportedOption = "unsupported_option"
	CodeValidation        = "validation_error"
	CodeInvalidState      = "invalid_state"
	CodeUpstreamFailure   = "upstream_failure"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, CodeConflict, err)
}

func UnsupportedOption(err error) *Error {
	return New(http.StatusBadRequest, CodeUnsupportedOption, err)
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidation, err)
}

func InvalidState(err error) *Error {
	return New(http.StatusConflict, CodeInvalidState, err)
}

func Upstream(err error) *Error {
	return New(http.StatusBadGateway, CodeUpstreamFailure, err)
}

// From returns err as an *Error, wrapping unknown errors as a 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}

func IsCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
