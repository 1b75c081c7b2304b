package controller

import (
	"context"
	"strings"

	"taskboard/internal/api"
)

// Projects lists projects (all of them for admins) and manages them.
type Projects struct {
	*Cycle[[]api.Project]
	svc  Service
	sess Session
}

func NewProjects(svc Service, sess Session) *Projects {
	p := &Projects{svc: svc, sess: sess}
	p.Cycle = NewCycle("projects", sess, p.fetch)
	return p
}

func (p *Projects) fetch(ctx context.Context) ([]api.Project, error) {
	id, err := current(p.sess)
	if err != nil {
		return nil, err
	}
	return listProjects(ctx, p.svc, id)
}

// Create adds a project. The title must not be blank.
func (p *Projects) Create(ctx context.Context, req api.ProjectRequest) error {
	return p.Mutate(ctx, "create project", func(ctx context.Context) error {
		clean, err := normalizeProject(req)
		if err != nil {
			return err
		}
		_, err = p.svc.CreateProject(ctx, clean)
		return err
	})
}

// Update replaces a project's title and description.
func (p *Projects) Update(ctx context.Context, projectID string, req api.ProjectRequest) error {
	return p.Mutate(ctx, "update project", func(ctx context.Context) error {
		clean, err := normalizeProject(req)
		if err != nil {
			return err
		}
		_, err = p.svc.UpdateProject(ctx, projectID, clean)
		return err
	})
}

// Delete removes a project. The service refuses projects the user does
// not own.
func (p *Projects) Delete(ctx context.Context, projectID string) error {
	return p.Mutate(ctx, "delete project", func(ctx context.Context) error {
		return p.svc.DeleteProject(ctx, projectID)
	})
}

func normalizeProject(req api.ProjectRequest) (api.ProjectRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" {
		return req, ErrTitleRequired
	}
	return req, nil
}
