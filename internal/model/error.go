package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotAvailable       = "NOT_AVAILABLE"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeInsufficientAmount = "INSUFFICIENT_AMOUNT"
	ErrCodeBookingNotPayable  = "BOOKING_NOT_PAYABLE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeDuplicateRequest   = "DUPLICATE_REQUEST"
	ErrCodeNotRefundable      = "NOT_REFUNDABLE"
	ErrCodeSweepInProgress    = "SWEEP_IN_PROGRESS"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code, so a DomainError
// built with a specific message still matches the package sentinels.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// ValidationError returns a VALIDATION_ERROR carrying message.
func ValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// Common domain errors
var (
	ErrValidation         = NewDomainError(ErrCodeValidation, "Request is missing or has malformed fields")
	ErrNotAvailable       = NewDomainError(ErrCodeNotAvailable, "Item is not available for booking")
	ErrInvalidTransition  = NewDomainError(ErrCodeInvalidTransition, "Requested status change is not allowed")
	ErrInsufficientAmount = NewDomainError(ErrCodeInsufficientAmount, "Payment must equal the remaining balance")
	ErrBookingNotPayable  = NewDomainError(ErrCodeBookingNotPayable, "Booking does not accept payments in its current status")
	ErrNotFound           = NewDomainError(ErrCodeNotFound, "Resource not found")
	ErrDuplicateRequest   = NewDomainError(ErrCodeDuplicateRequest, "A refund request already exists for this booking")
	ErrNotRefundable      = NewDomainError(ErrCodeNotRefundable, "Booking is not eligible for a refund")
)
