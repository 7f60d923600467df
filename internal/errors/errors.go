// Package errors defines the error taxonomy for the drop bot: validation
// errors (user-correctable), transient chain errors (retried), fatal dispatch
// errors (never retried), and persistence errors (logged, state kept in
// memory for a later write).
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents user-correctable input errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryTransientChain represents retryable chain RPC failures
	CategoryTransientChain ErrorCategory = "transient_chain"
	// CategoryFatalDispatch represents non-retryable dispatch failures
	CategoryFatalDispatch ErrorCategory = "fatal_dispatch"
	// CategoryPersistence represents external store write failures
	CategoryPersistence ErrorCategory = "persistence"
	// CategoryNotification represents notification sink failures
	CategoryNotification ErrorCategory = "notification"
	// CategorySystem represents unexpected internal errors
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and structured context
type CategorizedError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewInvalidAddressError creates a validation error for a malformed or
// checksum-failing recipient address.
func NewInvalidAddressError(address string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryValidation,
		Code:     "INVALID_ADDRESS",
		Message:  fmt.Sprintf("invalid address format: %s", address),
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// NewChainError creates a transient chain error (RPC timeout, underpriced
// fee, connection refused). Eligible for retry.
func NewChainError(op string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryTransientChain,
		Code:     "CHAIN_ERROR",
		Message:  fmt.Sprintf("chain RPC error during %s", op),
		Cause:    cause,
		Details: map[string]interface{}{
			"operation": op,
		},
	}
}

// NewDispatchError creates a fatal dispatch error (signing failure,
// malformed transaction). Never retried.
func NewDispatchError(op string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryFatalDispatch,
		Code:     "DISPATCH_ERROR",
		Message:  fmt.Sprintf("dispatch failed during %s", op),
		Cause:    cause,
		Details: map[string]interface{}{
			"operation": op,
		},
	}
}

// NewPersistenceError creates a persistence error for a failed store write.
func NewPersistenceError(document string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryPersistence,
		Code:     "PERSISTENCE_ERROR",
		Message:  fmt.Sprintf("store write failed for document %q", document),
		Cause:    cause,
		Details: map[string]interface{}{
			"document": document,
		},
	}
}

// NewNotificationError creates a notification sink error. Logged, never
// escalated.
func NewNotificationError(venue string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryNotification,
		Code:     "NOTIFICATION_ERROR",
		Message:  fmt.Sprintf("notification delivery failed for venue %s", venue),
		Cause:    cause,
		Details: map[string]interface{}{
			"venue": venue,
		},
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategorySystem,
		Code:     "INTERNAL_ERROR",
		Message:  message,
		Cause:    cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}
	return NewInternalError("unexpected error", err)
}

// IsRetryable determines if an error is eligible for retry. Only transient
// chain failures are; fatal dispatch and validation errors are not.
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.Category == CategoryTransientChain
}

// CategoryOf returns the category of an error, CategorySystem when unknown.
func CategoryOf(err error) ErrorCategory {
	catErr := Categorize(err)
	if catErr == nil {
		return CategorySystem
	}
	return catErr.Category
}
