package controller

import (
	"context"

	"taskboard/internal/api"
)

// Service is the set of API client calls the controllers make.
// *api.Client satisfies it.
type Service interface {
	GetProfile(ctx context.Context) (*api.Identity, error)
	GetAllUsers(ctx context.Context) ([]api.Identity, error)

	GetProjects(ctx context.Context) ([]api.Project, error)
	GetAllProjects(ctx context.Context) ([]api.Project, error)
	GetProjectByID(ctx context.Context, id string) (*api.Project, error)
	CreateProject(ctx context.Context, req api.ProjectRequest) (*api.Project, error)
	UpdateProject(ctx context.Context, id string, req api.ProjectRequest) (*api.Project, error)
	DeleteProject(ctx context.Context, id string) error

	GetTasks(ctx context.Context, projectID string) ([]api.Task, error)
	CreateTask(ctx context.Context, req api.CreateTaskRequest) (*api.Task, error)
	UpdateTask(ctx context.Context, id string, req api.UpdateTaskRequest) (*api.Task, error)
	DeleteTask(ctx context.Context, id string) error
	GetTaskStats(ctx context.Context) (*api.TaskStats, error)
}

var _ Service = (*api.Client)(nil)

// listProjects picks the listing endpoint by role: admins see every
// project, everyone else their own.
func listProjects(ctx context.Context, svc Service, id *api.Identity) ([]api.Project, error) {
	if id.IsAdmin() {
		return svc.GetAllProjects(ctx)
	}
	return svc.GetProjects(ctx)
}

func changeStatus(ctx context.Context, svc Service, taskID string, status api.Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	_, err := svc.UpdateTask(ctx, taskID, api.StatusUpdate(status))
	return err
}
