package api

import (
	"bytes"
	"encoding/json"
	"time"
)

// Role is the authorization role of an identity.
type Role string

// Roles known to the task service.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a role the service accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status is the workflow state of a task.
type Status string

// Task statuses as they appear on the wire.
const (
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority is the urgency of a task.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Identity is the client's view of an authenticated user.
// Token is only populated on register and login responses.
type Identity struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Token string `json:"token,omitempty"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Ref is a reference to another entity. The service sends either the bare
// id or, on populated endpoints, an object carrying display fields.
type Ref struct {
	ID    string
	Name  string
	Email string
	Title string
}

type refObject struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Title string `json:"title,omitempty"`
}

// UnmarshalJSON accepts a string id, a populated object, or null.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	var obj refObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Ref(obj)
	return nil
}

// MarshalJSON encodes a bare reference as its id and a populated one as an
// object, mirroring what the service sends.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Name == "" && r.Email == "" && r.Title == "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(refObject(r))
}

// Label returns the most human-readable field available.
func (r Ref) Label() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.Title != "":
		return r.Title
	default:
		return r.ID
	}
}

// Project groups tasks under an owner.
type Project struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Owner       Ref       `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Task is a unit of work inside a project.
type Task struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Project     Ref        `json:"project"`
	AssignedTo  *Ref       `json:"assignedTo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TaskStats is the pre-aggregated task summary served by the service.
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the body of PUT /auth/profile.
// An empty password keeps the current one.
type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// ProjectRequest is the body for creating or updating a project.
type ProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// CreateTaskRequest is the body of POST /tasks. DueDate is a calendar date
// (YYYY-MM-DD) or empty.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"dueDate,omitempty"`
	Project     string   `json:"project"`
	AssignedTo  string   `json:"assignedTo,omitempty"`
}

// UpdateTaskRequest is a partial task update; nil fields are not sent.
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	AssignedTo  *string   `json:"assignedTo,omitempty"`
}

// StatusUpdate builds the partial body used by the status quick actions.
func StatusUpdate(s Status) UpdateTaskRequest {
	return UpdateTaskRequest{Status: &s}
}
