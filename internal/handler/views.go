package handler

import (
	"context"
	"log"
	"net/http"

	"taskboard/internal/api"
	"taskboard/internal/controller"
	"taskboard/internal/session"
)

// ViewsHandler serves the protected views. Every request mounts a fresh
// controller, so each response reflects a full fetch.
type ViewsHandler struct {
	svc  controller.Service
	sess *session.Store
}

type viewResponse[T any] struct {
	View     string        `json:"view"`
	Identity *api.Identity `json:"identity"`
	State    string        `json:"state"`
	Data     T             `json:"data"`
}

type dashboardView struct {
	Stats          api.TaskStats `json:"stats"`
	RecentProjects []api.Project `json:"recentProjects"`
	RecentTasks    []api.Task    `json:"recentTasks"`
	ProjectCount   int           `json:"projectCount"`
}

type tasksView struct {
	controller.TasksData
	Counts map[api.Status]int `json:"counts"`
	// CanAssign tells the form whether to offer the assignee selector.
	CanAssign bool `json:"canAssign"`
}

type statusRequest struct {
	Status api.Status `json:"status"`
}

// mountable is the part of a controller the handlers drive.
type mountable interface {
	Mount(ctx context.Context) error
	Unmount()
}

// serve mounts c, runs op (if any) and renders the result with render. A
// failed load does not block op; op's own success re-fetches the view.
func serve(w http.ResponseWriter, r *http.Request, c mountable, op func(ctx context.Context) error, render func()) {
	defer c.Unmount()
	if err := c.Mount(r.Context()); err != nil {
		if op == nil || !controller.MutationsAllowed(err) {
			writeControllerError(w, err)
			return
		}
		log.Printf("failed to load %s before mutation: %v", r.URL.Path, err)
	}
	if op != nil {
		if err := op(r.Context()); err != nil {
			writeControllerError(w, err)
			return
		}
	}
	render()
}

func respond[T any](w http.ResponseWriter, id *api.Identity, view string, state controller.State, data T) {
	writeJSON(w, http.StatusOK, viewResponse[T]{View: view, Identity: id, State: state.String(), Data: data})
}

// ---- dashboard ----

func (h *ViewsHandler) renderDashboard(w http.ResponseWriter, d *controller.Dashboard) func() {
	return func() {
		snap := d.Snapshot()
		respond(w, h.sess.Current(), d.View(), snap.State, dashboardView{
			Stats:          snap.Data.Stats,
			RecentProjects: snap.Data.RecentProjects(),
			RecentTasks:    snap.Data.RecentTasks(),
			ProjectCount:   len(snap.Data.Projects),
		})
	}
}

// Dashboard handles GET /dashboard
func (h *ViewsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d := controller.NewDashboard(h.svc, h.sess)
	serve(w, r, d, nil, h.renderDashboard(w, d))
}

// DashboardTaskStatus handles POST /dashboard/tasks/{taskId}/status
func (h *ViewsHandler) DashboardTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d := controller.NewDashboard(h.svc, h.sess)
	serve(w, r, d, func(ctx context.Context) error {
		return d.ChangeStatus(ctx, r.PathValue("taskId"), req.Status)
	}, h.renderDashboard(w, d))
}

// ---- projects ----

func (h *ViewsHandler) renderProjects(w http.ResponseWriter, p *controller.Projects) func() {
	return func() {
		snap := p.Snapshot()
		projects := snap.Data
		if projects == nil {
			projects = []api.Project{}
		}
		respond(w, h.sess.Current(), p.View(), snap.State, projects)
	}
}

// Projects handles GET /projects
func (h *ViewsHandler) Projects(w http.ResponseWriter, r *http.Request) {
	p := controller.NewProjects(h.svc, h.sess)
	serve(w, r, p, nil, h.renderProjects(w, p))
}

// CreateProject handles POST /projects
func (h *ViewsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := controller.NewProjects(h.svc, h.sess)
	serve(w, r, p, func(ctx context.Context) error {
		return p.Create(ctx, req)
	}, h.renderProjects(w, p))
}

// UpdateProject handles PUT /projects/{projectId}
func (h *ViewsHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := controller.NewProjects(h.svc, h.sess)
	serve(w, r, p, func(ctx context.Context) error {
		return p.Update(ctx, r.PathValue("projectId"), req)
	}, h.renderProjects(w, p))
}

// DeleteProject handles DELETE /projects/{projectId}
func (h *ViewsHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	p := controller.NewProjects(h.svc, h.sess)
	serve(w, r, p, func(ctx context.Context) error {
		return p.Delete(ctx, r.PathValue("projectId"))
	}, h.renderProjects(w, p))
}

// ---- tasks ----

func (h *ViewsHandler) renderTasks(w http.ResponseWriter, t *controller.Tasks) func() {
	return func() {
		snap := t.Snapshot()
		id := h.sess.Current()
		data := snap.Data
		if data.Tasks == nil {
			data.Tasks = []api.Task{}
		}
		respond(w, id, t.View(), snap.State, tasksView{
			TasksData: data,
			Counts:    data.CountByStatus(),
			CanAssign: id.IsAdmin(),
		})
	}
}

// Tasks handles GET /projects/{projectId}/tasks
func (h *ViewsHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	t := controller.NewTasks(h.svc, h.sess, r.PathValue("projectId"))
	serve(w, r, t, nil, h.renderTasks(w, t))
}

// CreateTask handles POST /projects/{projectId}/tasks
func (h *ViewsHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := controller.NewTasks(h.svc, h.sess, r.PathValue("projectId"))
	serve(w, r, t, func(ctx context.Context) error {
		return t.Create(ctx, req)
	}, h.renderTasks(w, t))
}

// TaskStatus handles POST /projects/{projectId}/tasks/{taskId}/status
func (h *ViewsHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := controller.NewTasks(h.svc, h.sess, r.PathValue("projectId"))
	serve(w, r, t, func(ctx context.Context) error {
		return t.ChangeStatus(ctx, r.PathValue("taskId"), req.Status)
	}, h.renderTasks(w, t))
}

// DeleteTask handles DELETE /projects/{projectId}/tasks/{taskId}
func (h *ViewsHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	t := controller.NewTasks(h.svc, h.sess, r.PathValue("projectId"))
	serve(w, r, t, func(ctx context.Context) error {
		return t.Delete(ctx, r.PathValue("taskId"))
	}, h.renderTasks(w, t))
}

// ---- profile ----

func (h *ViewsHandler) renderProfile(w http.ResponseWriter, p *controller.Profile) func() {
	return func() {
		snap := p.Snapshot()
		respond(w, h.sess.Current(), p.View(), snap.State, snap.Data)
	}
}

// Profile handles GET /profile
func (h *ViewsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p := controller.NewProfile(h.svc, h.sess)
	serve(w, r, p, nil, h.renderProfile(w, p))
}

// UpdateProfile handles PUT /profile. A blank password keeps the current
// one.
func (h *ViewsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := controller.NewProfile(h.svc, h.sess)
	serve(w, r, p, func(ctx context.Context) error {
		return p.Update(ctx, req)
	}, h.renderProfile(w, p))
}
