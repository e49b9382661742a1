package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInsufficientScheduleInput = errors.New("insufficient schedule input")
	ErrNoScheduleFound           = errors.New("no payment schedule found")
	ErrNotFound                  = errors.New("not found")
	ErrConcurrencyConflict       = errors.New("concurrency conflict")
	ErrPersistenceFailure        = errors.New("persistence failure")
	ErrInvalidPaymentAmount      = errors.New("invalid payment amount")
	ErrInvalidPaymentPolicy      = errors.New("invalid payment policy")
	ErrInvalidInput              = errors.New("invalid input")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInsufficientScheduleInput = "INSUFFICIENT_SCHEDULE_INPUT"
	ErrCodeNoScheduleFound           = "NO_SCHEDULE_FOUND"
	ErrCodeNotFound                  = "NOT_FOUND"
	ErrCodeConcurrencyConflict       = "CONCURRENCY_CONFLICT"
	ErrCodePersistenceFailure        = "PERSISTENCE_FAILURE"
	ErrCodeInvalidPaymentAmount      = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidPaymentPolicy      = "INVALID_PAYMENT_POLICY"
	ErrCodeInvalidInput              = "INVALID_INPUT"
)

func WrapInsufficientScheduleInput(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientScheduleInput,
		reason,
		ErrInsufficientScheduleInput,
	)
}

func WrapNoScheduleFound(loanEntryID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoScheduleFound,
		fmt.Sprintf("No open payment schedule found for loan entry %s", loanEntryID),
		ErrNoScheduleFound,
	)
}

// WrapNotFound reports a missing record; kind is the record type, e.g. "loan entry".
func WrapNotFound(kind, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s with ID %s not found", kind, id),
		ErrNotFound,
	)
}

func WrapConcurrencyConflict(loanEntryID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		fmt.Sprintf("Loan entry %s was modified concurrently", loanEntryID),
		ErrConcurrencyConflict,
	)
}

func WrapPersistenceFailure(err error) *BusinessError {
	return NewBusinessError(
		ErrCodePersistenceFailure,
		"database operation failed",
		fmt.Errorf("%w: %v", ErrPersistenceFailure, err),
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapInvalidPaymentPolicy(policy string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentPolicy,
		fmt.Sprintf("Unknown payment type %q", policy),
		ErrInvalidPaymentPolicy,
	)
}

func WrapInvalidInput(message string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidInput,
		message,
		fmt.Errorf("%w: %v", ErrInvalidInput, err),
	)
}

// Code returns the business code carried by err, or "" when err is not a BusinessError.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
