package service

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	MsgNameAndURLRequired = "Name and URL are required"
	MsgInvalidBody        = "Invalid request body"
	MsgQueryFailed        = "Failed to fetch endpoint data"
	MsgRegisterFailed     = "Failed to add endpoint"
	MsgInternal           = "Internal server error"
)

// ValidationError reports a request the caller must fix. No state was changed.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InternalError wraps an unexpected failure. Message is safe to show to
// callers; Err carries the detail that is only logged.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps err to the response status code and the message exposed to
// the caller.
func HTTPStatus(err error) (int, string) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}

	var internalErr *InternalError
	if errors.As(err, &internalErr) {
		return http.StatusInternalServerError, internalErr.Message
	}

	return http.StatusInternalServerError, MsgInternal
}
