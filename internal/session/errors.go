package session

import (
	"errors"
	"net/http"

	"taskboard/internal/api"
)

// AuthError is a failed login or registration. Message is what the user
// sees: the service's own message when it sent one, a fixed fallback
// otherwise.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func newAuthError(err error, fallback string) *AuthError {
	msg := fallback
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" && reqErr.Message != http.StatusText(reqErr.StatusCode) {
		msg = reqErr.Message
	}
	return &AuthError{Message: msg, Err: err}
}
