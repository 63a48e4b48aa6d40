// Package errors defines the application error taxonomy and the retry and
// circuit breaker helpers used around external calls.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation  = "E100"
	CodeDatabase    = "E200"
	CodeExternalAPI = "E300"
	CodeState       = "E400"
	CodeRateLimit   = "E500"
	CodeTransport   = "E600"
)

// AppError carries a log message plus the i18n key of the text shown to the user.
type AppError struct {
	Code      string
	Message   string
	UserKey   string
	Severity  Severity
	Retryable bool
	cause     error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:      CodeValidation,
		Message:   msg,
		UserKey:   "errors.validation",
		Severity:  SeverityLow,
		Retryable: false,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:      CodeDatabase,
		Message:   fmt.Sprintf("Database error: %s", underlyingMsg),
		UserKey:   "errors.temporary",
		Severity:  SeverityHigh,
		Retryable: true,
		cause:     cause,
	}
}

// NewExternalAPIError wraps a failed call to apiName. Retryable marks transient failures.
func NewExternalAPIError(apiName string, cause error, retryable bool) *AppError {
	msg := fmt.Sprintf("External API error: %s", apiName)
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, cause.Error())
	}

	return &AppError{
		Code:      CodeExternalAPI,
		Message:   msg,
		UserKey:   "errors.unavailable",
		Severity:  SeverityMedium,
		Retryable: retryable,
		cause:     cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:      CodeState,
		Message:   msg,
		UserKey:   "errors.state",
		Severity:  SeverityMedium,
		Retryable: false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:      CodeRateLimit,
		Message:   fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserKey:   "errors.rate_limited",
		Severity:  SeverityLow,
		Retryable: false,
	}
}

// NewTransportError wraps a message delivery failure that is not benign staleness.
func NewTransportError(op string, cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:      CodeTransport,
		Message:   fmt.Sprintf("Transport error on %s: %s", op, underlyingMsg),
		UserKey:   "errors.generic",
		Severity:  SeverityHigh,
		Retryable: false,
		cause:     cause,
	}
}
