package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the failure classes the downloader distinguishes
type ErrorType string

const (
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeAuth         ErrorType = "auth"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeDownload     ErrorType = "download"
	ErrorTypeConversion   ErrorType = "conversion"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error is a typed error. Code carries the remote status code when there is one.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, err error, message string) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// NewInvalidInputError reports input that does not name a sticker set
func NewInvalidInputError(format string, args ...interface{}) *Error {
	return New(ErrorTypeInvalidInput, fmt.Sprintf(format, args...))
}

// NewAuthError reports a rejected bot token
func NewAuthError(message string, code int) *Error {
	return &Error{Type: ErrorTypeAuth, Message: message, Code: code}
}

// NewNotFoundError reports an unknown sticker set or file
func NewNotFoundError(message string, code int) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: message, Code: code}
}

// NewNetworkError reports a transport failure talking to the API
func NewNetworkError(err error, message string) *Error {
	return Wrap(ErrorTypeNetwork, err, message)
}

// NewDownloadError reports a per-item transfer or disk failure
func NewDownloadError(err error, message string) *Error {
	return Wrap(ErrorTypeDownload, err, message)
}

// NewConversionError reports a per-item decode or encode failure
func NewConversionError(err error, message string) *Error {
	return Wrap(ErrorTypeConversion, err, message)
}

// TypeOf returns the type of the first typed error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

func IsAuth(err error) bool         { return Is(err, ErrorTypeAuth) }
func IsNotFound(err error) bool     { return Is(err, ErrorTypeNotFound) }
func IsInvalidInput(err error) bool { return Is(err, ErrorTypeInvalidInput) }

// StatusCode returns the remote status code attached to err, or 0
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeDownload:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// IsRetryableError combines the type and status code checks
func IsRetryableError(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return IsRetryable(e.Type) && IsRetryableStatusCode(e.Code)
}
