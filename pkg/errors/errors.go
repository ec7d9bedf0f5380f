package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Hint    string `json:"hint,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so cloned values still satisfy errors.Is against the predefined ones.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound        = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden       = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized    = New("UNAUTHORIZED", http.StatusUnauthorized, "wallet session required")
	ErrConflict        = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation      = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss       = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrTooManyRequests = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")

	// Authorization failures.
	ErrRoleRequired     = New("ROLE_REQUIRED", http.StatusForbidden, "required role missing")
	ErrInactiveAccount  = New("ACCOUNT_INACTIVE", http.StatusForbidden, "role is inactive")
	ErrInvalidSignature = New("INVALID_SIGNATURE", http.StatusUnauthorized, "wallet signature does not match address")
	ErrWrongNetwork     = &Error{Code: "WRONG_NETWORK", Status: http.StatusBadRequest, Message: "wallet is connected to the wrong network", Hint: "switch network"}

	// Workflow precondition failures.
	ErrInvalidTransition = New("INVALID_TRANSITION", http.StatusConflict, "application is not in the required status")
	ErrDuplicateVote     = New("DUPLICATE_VOTE", http.StatusConflict, "caller has already voted on this application")
	ErrInsufficientFunds = New("INSUFFICIENT_FUNDS", http.StatusConflict, "pooled funds are below the disbursement amount")
	ErrAlreadyDisbursed  = New("ALREADY_DISBURSED", http.StatusConflict, "funds already disbursed")

	// Operation outcomes.
	ErrCancelled       = New("CANCELLED", http.StatusConflict, "operation cancelled by caller")
	ErrPending         = New("OPERATION_PENDING", http.StatusAccepted, "operation still pending")
	ErrInFlight        = New("OPERATION_IN_FLIGHT", http.StatusConflict, "an identical operation is already in progress")
	ErrUpstreamDown    = &Error{Code: "UPSTREAM_UNAVAILABLE", Status: http.StatusServiceUnavailable, Message: "upstream service unavailable", Hint: "retry"}
	ErrUpstreamFailed  = New("UPSTREAM_FAILED", http.StatusBadGateway, "upstream service returned an error")
	ErrFeatureDisabled = New("FEATURE_DISABLED", http.StatusNotFound, "feature disabled")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(err, ErrCancelled.Code, ErrCancelled.Status, ErrCancelled.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: ErrUpstreamDown.Code, Status: ErrUpstreamDown.Status, Message: "operation timed out", Hint: ErrUpstreamDown.Hint, Err: err}
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsBenign reports whether the error is a caller cancellation rather than a failure.
func IsBenign(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
