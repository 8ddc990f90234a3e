package common

import (
	"errors"
	"net/http"
)

// Error codes carried in the envelope's error.code.
const (
	CodeBadRequest           = "BAD_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeVoucherNotApplicable = "VOUCHER_NOT_APPLICABLE"
	CodeUsageExhausted       = "USAGE_EXHAUSTED"
	CodeCheckoutInProgress   = "CHECKOUT_IN_PROGRESS"
	CodeRequestInProgress    = "REQUEST_IN_PROGRESS"
	CodeIdempotencyKeyReused = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeUnavailable          = "UNAVAILABLE"
	CodeInternal             = "INTERNAL"
)

// AppError is an error that knows how it is rendered over HTTP.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetails returns a copy of e carrying details in the response body.
func (e *AppError) WithDetails(details any) *AppError {
	out := *e
	out.Details = details
	return &out
}

// NewAppError constructs an AppError. A zero status renders as 500.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// NotFound is a 404 AppError.
func NotFound(message string, err error) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, err)
}

// Unprocessable is a 422 AppError for requests that are well formed but refused by a business rule.
func Unprocessable(code, message string, err error) *AppError {
	return NewAppError(code, message, http.StatusUnprocessableEntity, err)
}

// AsAppError unwraps the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}
