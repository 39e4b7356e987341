package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alahiff/simtrack-client/internal/models"
)

// CreateRun registers a new run and returns the server-assigned identity.
func (c *Client) CreateRun(ctx context.Context, payload *models.RunPayload) (*models.RunResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/api/runs")
	if err != nil {
		return nil, connErr("create run", err)
	}
	if err := mapResponse(resp); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	var run models.RunResponse
	if err := json.Unmarshal(resp.Body(), &run); err != nil {
		return nil, fmt.Errorf("create run: decode response: %w", err)
	}

	c.log.Debug().Str("run", run.ID).Str("name", run.Name).Msg("run registered")
	return &run, nil
}

// UpdateRun applies a partial update (status, metadata, tags) to a run.
func (c *Client) UpdateRun(ctx context.Context, update *models.RunUpdate) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(update).
		Put("/api/runs")
	if err != nil {
		return connErr("update run", err)
	}
	if err := mapResponse(resp); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// Heartbeat signals that the run's owning process is still alive. Retries
// are configured on the underlying client.
func (c *Client) Heartbeat(ctx context.Context, runID string) error {
	resp, err := c.hb.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"id": runID}).
		Put("/api/runs/heartbeat")
	if err != nil {
		return connErr("heartbeat", err)
	}
	if err := mapResponse(resp); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}
