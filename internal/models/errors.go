package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeNotSignedIn = "NOT_SIGNED_IN"
	CodeNotFound    = "NOT_FOUND"
	CodeMalformed   = "MALFORMED"
	CodeTransport   = "TRANSPORT"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotSignedInError() *AppError {
	return &AppError{
		Code:    CodeNotSignedIn,
		Message: "Not signed in",
	}
}

func NewNotFoundError(resource string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewMalformedError(resource, reason string) *AppError {
	return &AppError{
		Code:    CodeMalformed,
		Message: fmt.Sprintf("malformed %s document: %s", resource, reason),
	}
}

func NewTransportError(err error) *AppError {
	return &AppError{
		Code:    CodeTransport,
		Message: "remote call failed",
		Err:     err,
	}
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool  { return HasCode(err, CodeNotFound) }
func IsMalformed(err error) bool { return HasCode(err, CodeMalformed) }
