// Package apperr carries user-facing errors with a code that decides the HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) error { return New(CodeInvalidArgument, msg) }

func Validation(msg string) error { return New(CodeValidation, msg) }

func NotFound(msg string) error { return New(CodeNotFound, msg) }

func Conflict(msg string) error { return New(CodeConflict, msg) }

func Unauthorized(msg string) error { return New(CodeUnauthenticated, msg) }

func Forbidden(msg string) error { return New(CodePermissionDenied, msg) }

func RateLimited(msg string) error { return New(CodeRateLimited, msg) }

// Internal hides cause from the client; the message stays generic.
func Internal(cause error) error {
	return Wrap(CodeInternal, "服务器内部错误", cause)
}

// From extracts the AppError in err's chain. Anything else becomes Internal.
func From(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return &AppError{Code: CodeInternal, Message: "服务器内部错误", Cause: err}
}

// CodeOf reports the code of err, CodeUnknown for nil.
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	return From(err).Code
}
