package controller

import (
	"errors"
	"fmt"

	"taskboard/internal/api"
	"taskboard/internal/session"
)

var (
	// ErrStale is returned by a load whose result was discarded because
	// the view unmounted or a newer load started.
	ErrStale = errors.New("result discarded: view no longer current")

	// ErrSessionExpired wraps a 401 from the service. The session has
	// already been cleared when it is returned.
	ErrSessionExpired = errors.New("session expired")

	ErrNotMounted = errors.New("view is not mounted")

	// ErrNoSession is the session store's sentinel, surfaced as a fetch
	// error when a protected view loads without a session.
	ErrNoSession = session.ErrNoSession

	ErrTitleRequired   = errors.New("title is required")
	ErrNameRequired    = errors.New("name is required")
	ErrEmailRequired   = errors.New("email is required")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
)

// FetchError is a failed load of a view's data.
type FetchError struct {
	View string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.View, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MutationError is a failed create, update or delete.
type MutationError struct {
	View string
	Op   string
	Err  error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// MutationsAllowed reports whether a view whose load failed with err can
// still take mutations: the fetch failed but the session is intact.
func MutationsAllowed(err error) bool {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	return !errors.Is(err, ErrSessionExpired) && !errors.Is(err, ErrNoSession)
}

// Message is the text to show a user for err: the service's own message
// when there is one, otherwise the error without the view/operation prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Err.Error()
	}
	var mutErr *MutationError
	if errors.As(err, &mutErr) {
		return mutErr.Err.Error()
	}
	return err.Error()
}
