package handler

import (
	"errors"
	"log"
	"net/http"

	"taskboard/internal/api"
	"taskboard/internal/gate"
	"taskboard/internal/session"
)

const afterLoginPath = "/dashboard"

// AuthHandler serves the public login and registration views.
type AuthHandler struct {
	sess *session.Store
}

type formField struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type formResponse struct {
	View   string      `json:"view"`
	Action string      `json:"action"`
	Fields []formField `json:"fields"`
}

type signedInResponse struct {
	Identity *api.Identity `json:"identity"`
	Redirect string        `json:"redirect"`
}

// LoginForm handles GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formResponse{
		View:   "login",
		Action: "POST /login",
		Fields: []formField{
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true},
		},
	})
}

// RegisterForm handles GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formResponse{
		View:   "register",
		Action: "POST /register",
		Fields: []formField{
			{Name: "name", Type: "text", Required: true},
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true},
			{Name: "role", Type: "select", Options: []string{string(api.RoleUser), string(api.RoleAdmin)}},
		},
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.sess.Login(r.Context(), req)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signedInResponse{Identity: id, Redirect: afterLoginPath})
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Role != "" && !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	id, err := h.sess.Register(r.Context(), req)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signedInResponse{Identity: id, Redirect: afterLoginPath})
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.Logout(r.Context()); err != nil {
		log.Printf("failed to log out: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": gate.LoginPath})
}

func writeAuthError(w http.ResponseWriter, err error) {
	var authErr *session.AuthError
	if !errors.As(err, &authErr) {
		log.Printf("failed to persist session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	status := api.StatusCode(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	writeError(w, status, authErr.Message)
}
