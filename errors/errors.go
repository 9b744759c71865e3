// Package errors provides the structured error values returned at the
// boundary of the resilient access layer.
//
// Every failure that leaves caller.Invoke is an *AppError carrying a
// machine-readable code, a retryable hint and optional details, so consumers
// never have to inspect raw transport errors.
package errors

import (
	"fmt"
	"math"
	"net/http"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried later.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// RateLimited is returned when no request token could be acquired within the
// configured wait budget. No network call was attempted.
func RateLimited(upstream string) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Rate limit exceeded - too many requests",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"upstream": upstream},
	}
}

// CircuitOpen is returned when the circuit breaker rejected the call.
// retryIn is the remaining cool-down before a trial call will be admitted.
func CircuitOpen(upstream string, retryIn time.Duration) *AppError {
	secs := math.Ceil(retryIn.Seconds())
	return &AppError{
		Code:       ErrCodeCircuitOpen,
		Message:    fmt.Sprintf("Circuit breaker OPEN - %s unavailable (retry in %.0fs)", upstream, secs),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"upstream": upstream, "retry_in_seconds": secs},
	}
}

// UpstreamFailure is returned when the upstream kept failing after every retry.
func UpstreamFailure(upstream string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeUpstreamFailure, Message: fmt.Sprintf("The %s API kept failing after retries.", upstream),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"upstream": upstream}, Cause: cause,
	}
}

// Timeout creates a new AppError for a request that was cancelled or timed out.
func Timeout(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
