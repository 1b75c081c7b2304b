package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"taskboard/internal/api"
	"taskboard/internal/controller"
	"taskboard/internal/gate"
)

// maxBodyBytes caps request bodies read by the view server.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeControllerError maps a controller failure to a response. The
// service's status is passed through; a lost session is 401 with a pointer
// to the login view; transport failures are 502.
func writeControllerError(w http.ResponseWriter, err error) {
	msg := controller.Message(err)
	switch {
	case errors.Is(err, controller.ErrSessionExpired), errors.Is(err, controller.ErrNoSession):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: msg, Redirect: gate.LoginPath})
	case api.StatusCode(err) != 0:
		writeError(w, api.StatusCode(err), msg)
	case isValidation(err):
		writeError(w, http.StatusBadRequest, msg)
	default:
		log.Printf("failed to reach task service: %v", err)
		writeError(w, http.StatusBadGateway, msg)
	}
}

func isValidation(err error) bool {
	for _, target := range []error{
		controller.ErrTitleRequired,
		controller.ErrNameRequired,
		controller.ErrEmailRequired,
		controller.ErrInvalidStatus,
		controller.ErrInvalidPriority,
		api.ErrMissingID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// decodeBody reads a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
