package apitest

import (
	"net/http"
	"strings"
	"time"

	"taskboard/internal/api"
	"taskboard/internal/auth"
)

// ---- auth ----

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decode(r, &req); err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		auth.WriteJSONError(w, http.StatusBadRequest, "Please provide all fields")
		return
	}
	if req.Role == "" {
		req.Role = api.RoleUser
	}
	if !req.Role.Valid() {
		auth.WriteJSONError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	s.mu.Lock()
	if s.userByEmail(req.Email) != nil {
		s.mu.Unlock()
		auth.WriteJSONError(w, http.StatusBadRequest, "User already exists")
		return
	}
	u := &user{ID: newID(), Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role}
	s.users = append(s.users, u)
	token := s.sign(u.ID, time.Now().Add(TokenTTL))
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, u.identity(token))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decode(r, &req); err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	u := s.userByEmail(req.Email)
	if u == nil || u.Password != req.Password {
		s.mu.Unlock()
		auth.WriteJSONError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token := s.sign(u.ID, time.Now().Add(TokenTTL))
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, u.identity(token))
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	id := u.identity("")
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, u *user) {
	var req api.UpdateProfileRequest
	if err := decode(r, &req); err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Email != "" && !strings.EqualFold(req.Email, u.Email) && s.userByEmail(req.Email) != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, "Email already in use")
		return
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.Password != "" {
		u.Password = req.Password
	}
	writeJSON(w, http.StatusOK, u.identity(""))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, _ *user) {
	s.mu.Lock()
	out := make([]api.Identity, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.identity(""))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// ---- projects ----

func (s *Server) projectJSON(p *project, populateOwner bool) map[string]any {
	out := map[string]any{
		"_id":       p.ID,
		"title":     p.Title,
		"owner":     p.OwnerID,
		"createdAt": p.CreatedAt,
	}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if populateOwner {
		if owner := s.userByID(p.OwnerID); owner != nil {
			out["owner"] = owner.ref()
		}
	}
	return out
}

func canManage(u *user, p *project) bool {
	return u.Role == api.RoleAdmin || p.OwnerID == u.ID
}

func (s *Server) listOwnProjects(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	out := []map[string]any{}
	for _, p := range s.projects {
		if p.OwnerID == u.ID {
			out = append(out, s.projectJSON(p, false))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAllProjects(w http.ResponseWriter, r *http.Request, _ *user) {
	s.mu.Lock()
	out := []map[string]any{}
	for _, p := range s.projects {
		out = append(out, s.projectJSON(p, true))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projectByID(r.PathValue("id"))
	if p == nil {
		auth.WriteJSONError(w, http.StatusNotFound, "Project not found")
		return
	}
	if !canManage(u, p) {
		auth.WriteJSONError(w, http.StatusForbidden, "Not authorized to view this project")
		return
	}
	writeJSON(w, http.StatusOK, s.projectJSON(p, false))
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request, u *user) {
	var req api.ProjectRequest
	if err := decode(r, &req); err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		auth.WriteJSONError(w, http.StatusBadRequest, "Title is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := &project{ID: newID(), Title: req.Title, Description: req.Description, OwnerID: u.ID, CreatedAt: time.Now().UTC()}
	s.projects = append(s.projects, p)
	writeJSON(w, http.StatusCreated, s.projectJSON(p, false))
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request, u *user) {
	var req api.ProjectRequest
	if err := decode(r, &req); err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projectByID(r.PathValue("id"))
	if p == nil {
		auth.WriteJSONError(w, http.StatusNotFound, "Project not found")
		return
	}
	if !canManage(u, p) {
		auth.WriteJSONError(w, http.StatusForbidden, "Not authorized to update this project")
		return
	}
	if req.Title != "" {
		p.Title = req.Title
	}
	p.Description = req.Description
	writeJSON(w, http.StatusOK, s.projectJSON(p, false))
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projectByID(r.PathValue("id"))
	if p == nil {
		auth.WriteJSONError(w, http.StatusNotFound, "Project not found")
		return
	}
	if !canManage(u, p) {
		auth.WriteJSONError(w, http.StatusForbidden, "Not authorized to delete this project")
		return
	}

	projects := s.projects[:0]
	for _, other := range s.projects {
		if other.ID != p.ID {
			projects = append(projects, other)
		}
	}
	s.projects = projects

	tasks := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ProjectID != p.ID {
			tasks = append(tasks, t)
		}
	}
	s.tasks = tasks

	writeJSON(w, http.StatusOK, map[string]string{"message": "Project and associated tasks deleted"})
}

// ---- tasks ----

func (s *Server) taskJSON(t *task) map[string]any {
	out := map[string]any{
		"_id":       t.ID,
		"title":     t.Title,
		"status":    t.Status,
		"priority":  t.Priority,
		"project":   t.ProjectID,
		"createdAt": t.CreatedAt,
	}
	if t.Description != "" {
		out["description"] = t.Description
	}
	if t.DueDate != nil {
		out["dueDate"] = t.DueDate
	}
	if t.AssignedTo != "" {
		if assignee := s.userByID(t.AssignedTo); assignee != nil {
			out["assignedTo"] = assignee.ref()
		}
	}
	return out
}

// visible expects s.mu held.
func (s *Server) visible(u *user, t *task) bool {
	if u.Role == api.RoleAdmin || t.AssignedTo == u.ID {
		return true
	}
	p := s.projectByID(t.ProjectID)
	return p != nil && p.OwnerID == u.ID
}

func parseDueDate(v string) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if d, err := time.Parse(layout, v); err == nil {
			return &d, true
		}
	}
	return nil, false
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request, u *user) {
	projectID := r.URL.Query().Get("projectId")

	s.mu.Lock()
	out := []map[string]any{}
	for _, t := range s.tasks {
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		if s.visible(u, t) {
			out = append(out, s.taskJSON(t))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) taskStats(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	var stats api.TaskStats
	for _, t := range s.tasks {
		if !s.visible(u, t) {
			continue
		}
		stats.Total++
		if t.Status == api.StatusDone {
			stats.Completed++
		}
	}
	s.mu.Unlock()
	stats.Pending = stats.Total - stats.Completed
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.taskByID(r.PathValue("id"))
	if t == nil {
		auth.WriteJSONError(w, http.StatusNotFound, "Task not found")
		return
	}
	if !s.visible(u, t) {
		auth.WriteJSONError(w, http.StatusForbidden, "Not authorized to view this task")
		return
	}
	writeJSON(w, http.StatusOK, s.taskJSON(t))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request, u *user) {
	var req api.CreateTaskRequest
	if err := decode(r, &req); err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		auth.WriteJSONError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.Status == "" {
		req.Status = api.StatusTodo
	}
	if req.Priority == "" {
		req.Priority = api.PriorityMedium
	}
	if !req.Status.Valid() || !req.Priority.Valid() {
		auth.WriteJSONError(w, http.StatusBadRequest, "Invalid status or priority")
		return
	}
	due, ok := parseDueDate(req.DueDate)
	if !ok {
		auth.WriteJSONError(w, http.StatusBadRequest, "Invalid due date")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projectByID(req.Project)
	if p == nil {
		auth.WriteJSONError(w, http.StatusNotFound, "Project not found")
		return
	}
	if !canManage(u, p) {
		auth.WriteJSONError(w, http.StatusForbidden, "Not authorized to add tasks to this project")
		return
	}
	if req.AssignedTo != "" && s.userByID(req.AssignedTo) == nil {
		auth.WriteJSONError(w, http.StatusBadRequest, "Assigned user not found")
		return
	}

	t := &task{
		ID:          newID(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     due,
		ProjectID:   p.ID,
		AssignedTo:  req.AssignedTo,
		CreatedAt:   time.Now().UTC(),
	}
	s.tasks = append(s.tasks, t)
	writeJSON(w, http.StatusCreated, s.taskJSON(t))
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, u *user) {
	var req api.UpdateTaskRequest
	if err := decode(r, &req); err != nil {
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.taskByID(r.PathValue("id"))
	if t == nil {
		auth.WriteJSONError(w, http.StatusNotFound, "Task not found")
		return
	}
	if !s.visible(u, t) {
		auth.WriteJSONError(w, http.StatusForbidden, "Not authorized to update this task")
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		auth.WriteJSONError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if req.Priority != nil && !req.Priority.Valid() {
		auth.WriteJSONError(w, http.StatusBadRequest, "Invalid priority")
		return
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		due, ok := parseDueDate(*req.DueDate)
		if !ok {
			auth.WriteJSONError(w, http.StatusBadRequest, "Invalid due date")
			return
		}
		t.DueDate = due
	}
	if req.AssignedTo != nil {
		t.AssignedTo = *req.AssignedTo
	}
	writeJSON(w, http.StatusOK, s.taskJSON(t))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.taskByID(r.PathValue("id"))
	if t == nil {
		auth.WriteJSONError(w, http.StatusNotFound, "Task not found")
		return
	}
	p := s.projectByID(t.ProjectID)
	if p == nil || !canManage(u, p) {
		auth.WriteJSONError(w, http.StatusForbidden, "Not authorized to delete this task")
		return
	}

	tasks := s.tasks[:0]
	for _, other := range s.tasks {
		if other.ID != t.ID {
			tasks = append(tasks, other)
		}
	}
	s.tasks = tasks
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}
