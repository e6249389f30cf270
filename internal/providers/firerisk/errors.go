package firerisk

import (
	"context"
	"errors"
	"fmt"
)

// APIError is returned for non-2xx responses and for payloads that do not
// have the expected shape. Status is zero for malformed responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func newStatusError(status int, body, statusText string) *APIError {
	detail := body
	if detail == "" {
		detail = statusText
	}
	return &APIError{
		Status:  status,
		Message: fmt.Sprintf("API %d: %s", status, detail),
	}
}

func newMalformedError(format string, args ...any) *APIError {
	return &APIError{Message: fmt.Sprintf(format, args...)}
}

// IsAbort reports whether err is the result of a cancelled request. Aborts are
// never shown to the user.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled)
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
