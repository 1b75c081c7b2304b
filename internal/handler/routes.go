package handler

import (
	"context"
	"net/http"
	"strings"

	"taskboard/internal/config"
	"taskboard/internal/controller"
	"taskboard/internal/gate"
	"taskboard/internal/session"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the local view server needs.
type Deps struct {
	Config  *config.Config
	Session *session.Store
	Service controller.Service
	DB      HealthChecker // nil unless sessions live in Postgres
}

// RegisterRoutes registers all HTTP routes with the provided mux.
func RegisterRoutes(mux *http.ServeMux, deps *Deps) {
	mux.HandleFunc("GET /health", healthHandler(deps.DB))
	mux.HandleFunc("GET /api/v1/status", statusHandler(deps))

	a := &AuthHandler{sess: deps.Session}
	mux.HandleFunc("GET /login", a.LoginForm)
	mux.HandleFunc("POST /login", a.Login)
	mux.HandleFunc("GET /register", a.RegisterForm)
	mux.HandleFunc("POST /register", a.Register)
	mux.HandleFunc("POST /logout", a.Logout)

	v := &ViewsHandler{svc: deps.Service, sess: deps.Session}
	protected := gate.Require(deps.Session)
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protected(fn))
	}

	handle("GET /dashboard", v.Dashboard)
	handle("POST /dashboard/tasks/{taskId}/status", v.DashboardTaskStatus)

	handle("GET /projects", v.Projects)
	handle("POST /projects", v.CreateProject)
	handle("PUT /projects/{projectId}", v.UpdateProject)
	handle("DELETE /projects/{projectId}", v.DeleteProject)

	handle("GET /projects/{projectId}/tasks", v.Tasks)
	handle("POST /projects/{projectId}/tasks", v.CreateTask)
	handle("POST /projects/{projectId}/tasks/{taskId}/status", v.TaskStatus)
	handle("DELETE /projects/{projectId}/tasks/{taskId}", v.DeleteTask)

	handle("GET /profile", v.Profile)
	handle("PUT /profile", v.UpdateProfile)

	// Everything else goes through the gate's route table: "/" redirects,
	// unknown paths are 404.
	mux.HandleFunc("/", fallbackHandler(deps.Session))
}

// fallbackHandler answers everything the mux patterns miss. Known views
// requested with a trailing slash are redirected to their canonical path,
// keeping the method.
func fallbackHandler(sess *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if canonical := strings.TrimRight(r.URL.Path, "/"); canonical != "" && canonical != r.URL.Path {
			if _, _, ok := gate.Match(canonical); ok {
				target := canonical
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusPermanentRedirect)
				return
			}
		}

		res := gate.Decide(sess, r.URL.Path)
		switch res.Decision {
		case gate.Redirect:
			http.Redirect(w, r, res.Target, http.StatusFound)
		case gate.NotFound:
			writeError(w, http.StatusNotFound, "not found")
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}
