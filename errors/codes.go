package errors

import "net/http"

// ErrorCode is the machine-readable code sent to API clients.
type ErrorCode string

const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"

	// No enrolled identity survived filtering.
	ErrCodeNoEnrollment ErrorCode = "NO_ENROLLMENT"
	// The embedding model cannot be loaded or reached. Aborts a run.
	ErrCodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	// A clip or segment decoded to no usable samples.
	ErrCodeEmptyAudio ErrorCode = "EMPTY_AUDIO"
	// ffmpeg or the WAV decoder rejected an input.
	ErrCodeMediaFailed ErrorCode = "MEDIA_FAILED"
)

type codeSpec struct {
	status    int
	retryable bool
}

var specs = map[ErrorCode]codeSpec{
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeExternalService:    {http.StatusBadGateway, true},
	ErrCodeModelUnavailable:   {http.StatusServiceUnavailable, true},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeNoEnrollment:       {http.StatusUnprocessableEntity, false},
	ErrCodeEmptyAudio:         {http.StatusUnprocessableEntity, false},
	ErrCodeMediaFailed:        {http.StatusUnprocessableEntity, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// HTTPStatus is the status an API response uses for code. Unknown codes
// map to 500.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := specs[c]; ok {
		return s.status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the same request may succeed later.
func (c ErrorCode) Retryable() bool { return specs[c].retryable }
