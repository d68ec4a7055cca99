package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. DomainError wraps one of these so callers can use errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidState        = errors.New("invalid state")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// DomainError is an error with a machine readable code and a kind sentinel.
type DomainError struct {
	Err     error
	Code    string
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Err }

// WithCode returns a copy of the error carrying a more specific code.
func (e *DomainError) WithCode(code string) *DomainError {
	return &DomainError{Err: e.Err, Code: code, Message: e.Message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

// NewConflictError reports a uniqueness or concurrent-modification conflict.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Code: "CONFLICT", Message: message}
}

// NewValidationError reports invalid input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Code: "VALIDATION_ERROR", Message: message}
}

// NewInvalidStateError reports an operation that is not allowed in the current state.
func NewInvalidStateError(message string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Code: "INVALID_STATE", Message: message}
}

// NewUnauthorizedError reports failed authentication.
func NewUnauthorizedError(code, message string) *DomainError {
	return &DomainError{Err: ErrUnauthorized, Code: code, Message: message}
}

// NewForbiddenError reports an authenticated caller that may not perform the action.
func NewForbiddenError(code, message string) *DomainError {
	return &DomainError{Err: ErrForbidden, Code: code, Message: message}
}

// NewInsufficientBalanceError reports a debit larger than the wallet balance.
func NewInsufficientBalanceError(message string) *DomainError {
	return &DomainError{Err: ErrInsufficientBalance, Code: "INSUFFICIENT_BALANCE", Message: message}
}
