package api

import (
	"context"
	"net/http"
	"net/url"
)

// GetTasks lists tasks visible to the caller, optionally narrowed to one
// project. An empty projectID sends no filter.
func (c *Client) GetTasks(ctx context.Context, projectID string) ([]Task, error) {
	var query url.Values
	if projectID != "" {
		query = url.Values{"projectId": {projectID}}
	}
	var out []Task
	if err := c.do(ctx, http.MethodGet, "/tasks", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTaskByID returns a single task.
func (c *Client) GetTaskByID(ctx context.Context, id string) (*Task, error) {
	path, err := resourcePath("/tasks", id)
	if err != nil {
		return nil, err
	}
	var out Task
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask creates a task inside req.Project.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	var out Task
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*Task, error) {
	path, err := resourcePath("/tasks", id)
	if err != nil {
		return nil, err
	}
	var out Task
	if err := c.do(ctx, http.MethodPut, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path, err := resourcePath("/tasks", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// GetTaskStats returns the service-computed totals for the caller.
func (c *Client) GetTaskStats(ctx context.Context) (*TaskStats, error) {
	var out TaskStats
	if err := c.do(ctx, http.MethodGet, "/tasks/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
