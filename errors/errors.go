package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independently of the HTTP status it maps to.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindLookupNotFound     Kind = "lookup_not_found"
	KindUpstreamService    Kind = "upstream_service"
	KindMalformedPayload   Kind = "malformed_completion_payload"
	KindInternal           Kind = "internal"
	KindRateLimitExceeded  Kind = "rate_limit_exceeded"
	KindMethodNotSupported Kind = "method_not_supported"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func E(op string, err error, message string, code int, kind Kind) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func InvalidInput(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusBadRequest, KindInvalidInput)
}

func NotFound(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusNotFound, KindNotFound)
}

func Internal(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusInternalServerError, KindInternal)
}

// Lookup reports that one of the datastore lookups for a video produced no
// usable row. The message is expected to carry the step prefix, for example
// "Video error".
func Lookup(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusInternalServerError, KindLookupNotFound)
}

// Upstream reports a failed call to the completion service.
func Upstream(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusInternalServerError, KindUpstreamService)
}

func MalformedPayload(op string, err error, message string) *AppError {
	return E(op, err, message, http.StatusInternalServerError, KindMalformedPayload)
}

var ErrRateLimitExceeded = E("RateLimiter", nil, "Rate limit exceeded", http.StatusTooManyRequests, KindRateLimitExceeded)

// KindOf returns the Kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindLookupNotFound:
		return true
	}
	return false
}

// StatusCode returns the HTTP status carried by err, defaulting to 500.
func StatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
