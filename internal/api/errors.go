package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingID is returned before dispatch when a call needs an identifier
// and none was given.
var ErrMissingID = errors.New("missing resource id")

// RequestError is a non-2xx response from the task service.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// newRequestError builds a RequestError from a response body. The service
// reports failures as {"message": "..."}; some middleware uses "error".
func newRequestError(status int, body []byte) *RequestError {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Message
		if msg == "" && len(payload.Error) > 0 {
			var s string
			if json.Unmarshal(payload.Error, &s) == nil {
				msg = s
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RequestError{StatusCode: status, Message: msg}
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// a RequestError.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether the service rejected the credential.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden reports whether the service refused the action for this identity.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNotFound reports whether the addressed resource does not exist.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
