package identity

import (
	"errors"
	"fmt"
	"net/http"
)

// DefaultErrorMessage is shown when a failure carries no message of its own.
const DefaultErrorMessage = "An error occurred"

// ResponseError is a failed provider call.
type ResponseError struct {
	// Status is the HTTP status of the response, 0 when no response arrived.
	Status int
	// Message is the provider's human readable message, if any.
	Message string
	// Response is the decoded response body.
	Response map[string]any
	// MFAID is set on a 401 that requires a second factor.
	MFAID string
	// IsAbort marks a request the caller cancelled.
	IsAbort bool
	Err     error
}

func (e *ResponseError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Status != 0:
		return fmt.Sprintf("identity provider responded %d %s", e.Status, http.StatusText(e.Status))
	default:
		return DefaultErrorMessage
	}
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status of a provider failure, or 0.
func StatusOf(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Status
	}
	return 0
}

// MFAIDOf returns the second-factor challenge of a provider failure, or "".
func MFAIDOf(err error) string {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.MFAID
	}
	return ""
}

// IsAbort reports whether err is a cancelled request rather than a failure.
func IsAbort(err error) bool {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.IsAbort
	}
	return false
}

// ErrorMessage picks the text shown to the user for err: the provider's
// message, then the error text, then DefaultErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return DefaultErrorMessage
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		if respErr.Message != "" {
			return respErr.Message
		}
		if msg, ok := respErr.Response["message"].(string); ok && msg != "" {
			return msg
		}
		if respErr.Err != nil && respErr.Err.Error() != "" {
			return respErr.Err.Error()
		}
		return DefaultErrorMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}
