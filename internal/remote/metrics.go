package remote

import (
	"context"
	"fmt"

	"github.com/alahiff/simtrack-client/internal/models"
)

type metricsRequest struct {
	Run  string             `json:"run"`
	Data []models.MetricSet `json:"data"`
}

type eventRequest struct {
	Run string `json:"run"`
	models.Event
}

// SendMetrics submits one batch of metric sets in submission order.
func (c *Client) SendMetrics(ctx context.Context, runID string, sets []models.MetricSet) error {
	if len(sets) == 0 {
		return nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(metricsRequest{Run: runID, Data: sets}).
		Post("/api/metrics")
	if err != nil {
		return connErr("send metrics", err)
	}
	if err := mapResponse(resp); err != nil {
		return fmt.Errorf("send metrics: %w", err)
	}

	c.log.Debug().Str("run", runID).Int("sets", len(sets)).Msg("metrics sent")
	return nil
}

// SendEvent appends one event to the run's event stream.
func (c *Client) SendEvent(ctx context.Context, runID string, event models.Event) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(eventRequest{Run: runID, Event: event}).
		Post("/api/events")
	if err != nil {
		return connErr("send event", err)
	}
	if err := mapResponse(resp); err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	return nil
}
