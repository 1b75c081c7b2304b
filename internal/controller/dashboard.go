package controller

import (
	"context"

	"taskboard/internal/api"

	"golang.org/x/sync/errgroup"
)

const (
	recentProjectsLimit = 5
	recentTasksLimit    = 6
)

// DashboardData is what the dashboard shows. Stats are taken as the
// service computed them.
type DashboardData struct {
	Stats    api.TaskStats `json:"stats"`
	Projects []api.Project `json:"projects"`
	Tasks    []api.Task    `json:"tasks"`
}

// RecentProjects returns the projects listed on the dashboard.
func (d DashboardData) RecentProjects() []api.Project {
	return head(d.Projects, recentProjectsLimit)
}

// RecentTasks returns the tasks listed on the dashboard.
func (d DashboardData) RecentTasks() []api.Task {
	return head(d.Tasks, recentTasksLimit)
}

func head[E any](s []E, n int) []E {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Dashboard loads task stats, projects and tasks together.
type Dashboard struct {
	*Cycle[DashboardData]
	svc  Service
	sess Session
}

func NewDashboard(svc Service, sess Session) *Dashboard {
	d := &Dashboard{svc: svc, sess: sess}
	d.Cycle = NewCycle("dashboard", sess, d.fetch)
	return d
}

func (d *Dashboard) fetch(ctx context.Context) (DashboardData, error) {
	var data DashboardData
	id, err := current(d.sess)
	if err != nil {
		return data, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := d.svc.GetTaskStats(gctx)
		if err != nil {
			return err
		}
		data.Stats = *stats
		return nil
	})
	g.Go(func() error {
		projects, err := listProjects(gctx, d.svc, id)
		data.Projects = projects
		return err
	})
	g.Go(func() error {
		tasks, err := d.svc.GetTasks(gctx, "")
		data.Tasks = tasks
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardData{}, err
	}
	return data, nil
}

// ChangeStatus moves a task to status and reloads the dashboard.
func (d *Dashboard) ChangeStatus(ctx context.Context, taskID string, status api.Status) error {
	return d.Mutate(ctx, "update task status", func(ctx context.Context) error {
		return changeStatus(ctx, d.svc, taskID, status)
	})
}
