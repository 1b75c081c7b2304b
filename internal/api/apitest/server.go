// Package apitest runs an in-memory stand-in for the remote task service.
// It follows the service's wire conventions (Mongo-style "_id" fields,
// {"message": ...} errors, HS256 bearer tokens) and records every call so
// tests can assert which endpoints a client touched.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"taskboard/internal/api"
	"taskboard/internal/auth"
	"taskboard/internal/jwtauth"

	"github.com/google/uuid"
)

// TokenTTL is how long issued tokens stay valid.
const TokenTTL = 30 * 24 * time.Hour

type user struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     api.Role
}

type project struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	CreatedAt   time.Time
}

type task struct {
	ID          string
	Title       string
	Description string
	Status      api.Status
	Priority    api.Priority
	DueDate     *time.Time
	ProjectID   string
	AssignedTo  string
	CreatedAt   time.Time
}

type failure struct {
	status  int
	message string
}

// Server is the fake task service.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	signer   *jwtauth.Signer
	users    []*user
	projects []*project
	tasks    []*task
	calls    []string
	failures map[string]failure
	hold     map[string]chan struct{}
}

// New starts a fake service. Close it when done.
func New() *Server {
	signer, err := jwtauth.NewSigner([]byte(uuid.NewString()))
	if err != nil {
		panic(fmt.Sprintf("apitest: %v", err))
	}
	s := &Server{
		signer:   signer,
		failures: make(map[string]failure),
		hold:     make(map[string]chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/profile", s.protect(s.getProfile))
	mux.HandleFunc("PUT /api/auth/profile", s.protect(s.updateProfile))
	mux.HandleFunc("GET /api/auth/users", s.protect(s.adminOnly(s.listUsers)))

	mux.HandleFunc("GET /api/projects", s.protect(s.listOwnProjects))
	mux.HandleFunc("GET /api/projects/admin/all", s.protect(s.adminOnly(s.listAllProjects)))
	mux.HandleFunc("GET /api/projects/{id}", s.protect(s.getProject))
	mux.HandleFunc("POST /api/projects", s.protect(s.createProject))
	mux.HandleFunc("PUT /api/projects/{id}", s.protect(s.updateProject))
	mux.HandleFunc("DELETE /api/projects/{id}", s.protect(s.deleteProject))

	mux.HandleFunc("GET /api/tasks", s.protect(s.listTasks))
	mux.HandleFunc("GET /api/tasks/stats", s.protect(s.taskStats))
	mux.HandleFunc("GET /api/tasks/{id}", s.protect(s.getTask))
	mux.HandleFunc("POST /api/tasks", s.protect(s.createTask))
	mux.HandleFunc("PUT /api/tasks/{id}", s.protect(s.updateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.protect(s.deleteTask))

	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// BaseURL is the value to hand to api.NewClient.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// ---- test controls ----

// AddUser seeds an account and returns its identity (without token).
func (s *Server) AddUser(name, email, password string, role api.Role) api.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{ID: newID(), Name: name, Email: email, Password: password, Role: role}
	s.users = append(s.users, u)
	return u.identity("")
}

// Token issues a valid token for the account with the given email.
func (s *Server) Token(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmail(email)
	if u == nil {
		return ""
	}
	return s.sign(u.ID, time.Now().Add(TokenTTL))
}

// SignToken issues a token for userID that expires at exp.
func (s *Server) SignToken(userID string, exp time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sign(userID, exp)
}

// RotateSecret invalidates every token issued so far.
func (s *Server) RotateSecret() {
	s.signer.Rotate([]byte(uuid.NewString()))
}

// AddProject seeds a project owned by the account with ownerEmail.
func (s *Server) AddProject(ownerEmail, title, description string) api.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := s.userByEmail(ownerEmail)
	if owner == nil {
		panic(fmt.Sprintf("apitest: unknown owner %q", ownerEmail))
	}
	p := &project{ID: newID(), Title: title, Description: description, OwnerID: owner.ID, CreatedAt: time.Now().UTC()}
	s.projects = append(s.projects, p)
	return api.Project{ID: p.ID, Title: p.Title, Description: p.Description, Owner: api.Ref{ID: owner.ID}, CreatedAt: p.CreatedAt}
}

// AddTask seeds a task in projectID.
func (s *Server) AddTask(projectID, title string, status api.Status) api.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &task{
		ID:        newID(),
		Title:     title,
		Status:    status,
		Priority:  api.PriorityMedium,
		ProjectID: projectID,
		CreatedAt: time.Now().UTC(),
	}
	s.tasks = append(s.tasks, t)
	return api.Task{ID: t.ID, Title: t.Title, Status: t.Status, Priority: t.Priority, Project: api.Ref{ID: projectID}, CreatedAt: t.CreatedAt}
}

// FailNext makes the next call to "METHOD /path" (path without the /api
// prefix) fail with status and message.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// Hold blocks calls to "METHOD /path" until the returned release func runs.
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold[method+" "+path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.hold, method+" "+path)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns "METHOD /path" for every request received, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many times "METHOD /path" was called.
func (s *Server) Count(method, path string) int {
	key := method + " " + path
	n := 0
	for _, c := range s.Calls() {
		if c == key {
			n++
		}
	}
	return n
}

// ResetCalls forgets the recorded calls.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// TaskCount returns how many tasks exist in projectID.
func (s *Server) TaskCount(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n
}

// ---- plumbing ----

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		s.calls = append(s.calls, key)
		f, failing := s.failures[key]
		delete(s.failures, key)
		hold := s.hold[key]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			auth.WriteJSONError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sign(userID string, exp time.Time) string {
	signed, err := s.signer.Sign(userID, exp)
	if err != nil {
		panic(fmt.Sprintf("apitest: %v", err))
	}
	return signed
}

type authedHandler func(w http.ResponseWriter, r *http.Request, u *user)

// protect resolves the verified token to an account before calling next.
func (s *Server) protect(next authedHandler) http.HandlerFunc {
	return s.signer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := jwtauth.GetClaims(r.Context())

		s.mu.Lock()
		u := s.userByID(claims.UserID)
		s.mu.Unlock()
		if u == nil {
			auth.WriteJSONError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		next(w, r, u)
	})).ServeHTTP
}

func (s *Server) adminOnly(next authedHandler) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, u *user) {
		if u.Role != api.RoleAdmin {
			auth.WriteJSONError(w, http.StatusForbidden, "Not authorized as admin")
			return
		}
		next(w, r, u)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON")
	}
	return nil
}

// userByEmail, userByID, projectByID and taskByID expect s.mu held.

func (s *Server) userByEmail(email string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (s *Server) userByID(id string) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) projectByID(id string) *project {
	for _, p := range s.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Server) taskByID(id string) *task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (u *user) identity(token string) api.Identity {
	return api.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Token: token}
}

func (u *user) ref() map[string]string {
	return map[string]string{"_id": u.ID, "name": u.Name, "email": u.Email}
}
