package api

import (
	"context"
	"net/http"
)

// GetProjects returns the caller's own projects.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAllProjects returns every project with owners populated. Admin only.
func (c *Client) GetAllProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.do(ctx, http.MethodGet, "/projects/admin/all", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProjectByID returns a single project.
func (c *Client) GetProjectByID(ctx context.Context, id string) (*Project, error) {
	path, err := resourcePath("/projects", id)
	if err != nil {
		return nil, err
	}
	var out Project
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject creates a project owned by the caller.
func (c *Client) CreateProject(ctx context.Context, req ProjectRequest) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodPost, "/projects", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject replaces a project's title and description.
func (c *Client) UpdateProject(ctx context.Context, id string, req ProjectRequest) (*Project, error) {
	path, err := resourcePath("/projects", id)
	if err != nil {
		return nil, err
	}
	var out Project
	if err := c.do(ctx, http.MethodPut, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject deletes a project. The service deletes its tasks too.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	path, err := resourcePath("/projects", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
