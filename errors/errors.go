package errors

import "fmt"

// AppError is the error type every speakerid package returns across a
// package boundary.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	// Cause is logged but never sent to clients.
	Cause error `json:"-"`
}

func newError(code ErrorCode, msg string, kvs ...any) *AppError {
	e := &AppError{Code: code, Message: msg, HTTPStatus: code.HTTPStatus(), Retryable: code.Retryable()}
	for i := 0; i+1 < len(kvs); i += 2 {
		e.WithDetail(kvs[i].(string), kvs[i+1])
	}
	return e
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func ServiceUnavailable(service string) *AppError {
	return newError(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service), "service", service)
}

func Timeout(operation string) *AppError {
	return newError(ErrCodeTimeout, "The request took too long. Please try again.", "operation", operation)
}

func RateLimited() *AppError {
	return newError(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.")
}

// NotFound names the missing resource; id is omitted from the details
// when empty.
func NotFound(resource, id string) *AppError {
	e := newError(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), "resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

func InvalidInput(field, reason string) *AppError {
	e := newError(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation is INVALID_INPUT with a message listing every failed field.
func Validation(message string) *AppError {
	return newError(ErrCodeInvalidInput, message)
}

func Internal(cause error) *AppError {
	return newError(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.").WithCause(cause)
}

func ExternalServiceError(service string, cause error) *AppError {
	return newError(ErrCodeExternalService,
		fmt.Sprintf("The %s service encountered an error. Please try again.", service), "service", service).WithCause(cause)
}

func NoEnrollment(dir string) *AppError {
	return newError(ErrCodeNoEnrollment, "No enrolled speakers remain after filtering.", "dir", dir)
}

func ModelUnavailable(name string, cause error) *AppError {
	return newError(ErrCodeModelUnavailable,
		fmt.Sprintf("The %s embedding model is unavailable.", name), "model", name).WithCause(cause)
}

func EmptyAudio(what string) *AppError {
	return newError(ErrCodeEmptyAudio, fmt.Sprintf("No usable audio in %s.", what), "source", what)
}

func MediaFailed(path string, cause error) *AppError {
	return newError(ErrCodeMediaFailed, fmt.Sprintf("Unable to decode media %s.", path), "path", path).WithCause(cause)
}

// HasCode reports whether err's chain holds an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
