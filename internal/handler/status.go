package handler

import (
	"net/http"
)

// Version is reported by the status endpoint.
const Version = "0.1.0"

func statusHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"service":       "taskboard",
			"version":       Version,
			"status":        "operational",
			"sessionReady":  deps.Session.Ready(),
			"authenticated": deps.Session.Authenticated(),
		}
		if deps.Config != nil {
			body["environment"] = deps.Config.Environment
			body["sessionStore"] = deps.Config.Session.Backend
		}
		writeJSON(w, http.StatusOK, body)
	}
}
