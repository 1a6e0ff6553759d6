package domain

import (
	"errors"
	"fmt"
)

// Error codes. Every sentinel below owns its own code; several codes share
// an HTTP status at the API edge.
const (
	CodeValidation          = "VALIDATION"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeForbidden           = "FORBIDDEN"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodeInvalidDenomination = "INVALID_DENOMINATION"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeConflict            = "CONFLICT"
)

// Error is an expected business failure. Two errors with the same code
// match under errors.Is regardless of message, so a WithMessage copy still
// matches its sentinel.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates an Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMessage returns a copy with a different human-readable message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Code: e.Code, Message: message, Cause: e.Cause}
}

// Wrap returns a copy that carries cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause}
}

// CodeOf extracts the code of err, or "" if err is not a domain error.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// MessageOf returns the human-readable message of a domain error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

var (
	ErrValidation   = NewError(CodeValidation, "invalid request")
	ErrUnauthorized = NewError(CodeUnauthorized, "You are not authorized to perform this action")
	ErrForbidden    = NewError(CodeForbidden, "You do not have permission to perform this action")

	ErrAccountNotFound = NewError(CodeAccountNotFound, "User not found")
	ErrProductNotFound = NewError(CodeProductNotFound, "Product not found")

	ErrInvalidDenomination = NewError(CodeInvalidDenomination, "Invalid coin. Accepted coins are 0.05, 0.10, 0.20, 0.50 and 1.00")
	ErrInsufficientStock   = NewError(CodeInsufficientStock, "Insufficient stock")
	ErrInsufficientFunds   = NewError(CodeInsufficientFunds, "Insufficient deposit")

	ErrUsernameTaken = NewError(CodeConflict, "Username already exists")

	ErrInvalidCredentials = NewError(CodeInvalidCredentials, "Invalid credentials")
	ErrTokenInvalid       = NewError(CodeTokenInvalid, "Invalid or expired token")
)
