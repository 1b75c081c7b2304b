// Package auth holds the bearer-credential helpers shared by the API client,
// the local view server and the fake service used in tests.
package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// Sentinel errors for token extraction failures.
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthScheme = errors.New("invalid authorization scheme: expected Bearer")
	ErrEmptyToken        = errors.New("empty bearer token")
)

const bearerPrefix = "Bearer "

// SetBearer attaches "Authorization: Bearer <token>" to the request.
// An empty token leaves the request untouched.
func SetBearer(r *http.Request, token string) {
	if token == "" {
		return
	}
	r.Header.Set("Authorization", bearerPrefix+token)
}

// ExtractBearerToken extracts the token from an "Authorization: Bearer <token>" header.
// Returns an error if the header is missing, uses wrong scheme, or token is empty.
func ExtractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthScheme
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// ErrorBody is the error payload used by the task service: {"message": "..."}.
type ErrorBody struct {
	Message string `json:"message"`
}

// WriteJSONError writes a service-style JSON error response.
// Always sets Content-Type: application/json.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorBody{Message: message}); err != nil {
		log.Printf("failed to write JSON error response: %v", err)
	}
}

// WriteUnauthorized writes a 401 Unauthorized JSON response.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusUnauthorized, "Not authorized, no token")
}

// WriteForbidden writes a 403 Forbidden JSON response.
func WriteForbidden(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusForbidden, "Not authorized")
}
