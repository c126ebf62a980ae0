// Package tasks creates follow-up work items on a Motion-compatible
// task board so every lead milestone has a scheduled human touch.
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

const defaultBaseURL = "https://api.usemotion.com/v1"

type Client struct {
	baseURL     string
	apiKey      string
	workspaceID string
	projectID   string
	http        *http.Client
	log         *logger.Logger
	now         func() time.Time
}

// NewClient returns nil when no API key is configured; task creation is
// then a no-op and the journey carries on without board items.
func NewClient(cfg config.TasksConfig, log *logger.Logger) *Client {
	if cfg.GetTasksAPIKey() == "" {
		return nil
	}
	return &Client{
		baseURL:     defaultBaseURL,
		apiKey:      cfg.GetTasksAPIKey(),
		workspaceID: cfg.GetTasksWorkspaceID(),
		projectID:   cfg.GetTasksProjectID(),
		http:        &http.Client{Timeout: 15 * time.Second},
		log:         log,
		now:         time.Now,
	}
}

type createTaskRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	WorkspaceID string   `json:"workspaceId"`
	ProjectID   string   `json:"projectId,omitempty"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"dueDate"`
	Duration    int      `json:"duration"`
	Labels      []string `json:"labels,omitempty"`
}

type createTaskResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreateTask(ctx context.Context, spec domain.TaskSpec) (string, error) {
	if c == nil {
		return "", nil
	}

	duration := spec.DurationMinutes
	if duration <= 0 {
		duration = 15
	}
	payload := createTaskRequest{
		Name:        spec.Title,
		Description: spec.Body,
		WorkspaceID: c.workspaceID,
		ProjectID:   c.projectID,
		Priority:    spec.Priority,
		DueDate:     c.now().UTC().Add(spec.DueIn).Format(time.RFC3339),
		Duration:    duration,
		Labels:      spec.Labels,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal task payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("task board request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		msg := fmt.Sprintf("task board returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", apperr.Unavailable(msg)
		}
		return "", apperr.BadRequest(msg)
	}

	var out createTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode task response: %w", err)
	}

	c.log.Info("task created", "task_id", out.ID, "title", spec.Title)
	return out.ID, nil
}
