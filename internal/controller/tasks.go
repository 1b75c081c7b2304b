package controller

import (
	"context"
	"strings"

	"taskboard/internal/api"

	"golang.org/x/sync/errgroup"
)

// TasksData is the task view of one project. Users is the assignment
// directory and stays empty for non-admins.
type TasksData struct {
	Project api.Project    `json:"project"`
	Tasks   []api.Task     `json:"tasks"`
	Users   []api.Identity `json:"users,omitempty"`
}

// CountByStatus tallies the loaded tasks per status. Every status is
// present in the result.
func (d TasksData) CountByStatus() map[api.Status]int {
	counts := make(map[api.Status]int, len(api.Statuses))
	for _, s := range api.Statuses {
		counts[s] = 0
	}
	for _, t := range d.Tasks {
		counts[t.Status]++
	}
	return counts
}

// Tasks manages the tasks of a single project.
type Tasks struct {
	*Cycle[TasksData]
	svc       Service
	sess      Session
	projectID string
}

func NewTasks(svc Service, sess Session, projectID string) *Tasks {
	t := &Tasks{svc: svc, sess: sess, projectID: projectID}
	t.Cycle = NewCycle("tasks", sess, t.fetch)
	return t
}

// ProjectID is the project this controller is bound to.
func (t *Tasks) ProjectID() string {
	return t.projectID
}

func (t *Tasks) fetch(ctx context.Context) (TasksData, error) {
	var data TasksData
	id, err := current(t.sess)
	if err != nil {
		return data, err
	}
	if t.projectID == "" {
		return data, api.ErrMissingID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := t.svc.GetTasks(gctx, t.projectID)
		data.Tasks = tasks
		return err
	})
	g.Go(func() error {
		project, err := t.svc.GetProjectByID(gctx, t.projectID)
		if err != nil {
			return err
		}
		data.Project = *project
		return nil
	})
	if id.IsAdmin() {
		g.Go(func() error {
			users, err := t.svc.GetAllUsers(gctx)
			data.Users = users
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return TasksData{}, err
	}
	return data, nil
}

// Create adds a task to the bound project. Status defaults to Todo and
// priority to Medium. Only admins can assign; the assignee is dropped for
// everyone else.
func (t *Tasks) Create(ctx context.Context, req api.CreateTaskRequest) error {
	return t.Mutate(ctx, "create task", func(ctx context.Context) error {
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			return ErrTitleRequired
		}
		if req.Status == "" {
			req.Status = api.StatusTodo
		}
		if req.Priority == "" {
			req.Priority = api.PriorityMedium
		}
		if !req.Status.Valid() {
			return ErrInvalidStatus
		}
		if !req.Priority.Valid() {
			return ErrInvalidPriority
		}
		if id := t.sess.Current(); !id.IsAdmin() {
			req.AssignedTo = ""
		}
		req.Project = t.projectID

		_, err := t.svc.CreateTask(ctx, req)
		return err
	})
}

// Delete removes a task.
func (t *Tasks) Delete(ctx context.Context, taskID string) error {
	return t.Mutate(ctx, "delete task", func(ctx context.Context) error {
		return t.svc.DeleteTask(ctx, taskID)
	})
}

// ChangeStatus moves a task to status.
func (t *Tasks) ChangeStatus(ctx context.Context, taskID string, status api.Status) error {
	return t.Mutate(ctx, "update task status", func(ctx context.Context) error {
		return changeStatus(ctx, t.svc, taskID, status)
	})
}
