package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alahiff/simtrack-client/internal/models"
)

// SaveArtifact registers the artifact record with the server, then uploads
// the content to the pre-signed storage URL returned by registration. A
// registration response without a URL means the server stored the record
// inline and no upload is needed.
func (c *Client) SaveArtifact(ctx context.Context, artifact *models.Artifact, content io.Reader) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(artifact).
		Post("/api/artifacts")
	if err != nil {
		return connErr("register artifact", err)
	}
	if err := mapResponse(resp); err != nil {
		return fmt.Errorf("register artifact: %w", err)
	}

	var registration models.ArtifactResponse
	if err := json.Unmarshal(resp.Body(), &registration); err != nil {
		return fmt.Errorf("register artifact: decode response: %w", err)
	}

	if registration.URL == "" {
		return nil
	}
	return c.uploadContent(ctx, registration.URL, artifact, content)
}

func (c *Client) uploadContent(ctx context.Context, url string, artifact *models.Artifact, content io.Reader) error {
	resp, err := c.storage.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("Content-Length", fmt.Sprintf("%d", artifact.Size)).
		SetBody(content).
		Put(url)
	if err != nil {
		return connErr("upload artifact", err)
	}
	if err := mapResponse(resp); err != nil {
		return fmt.Errorf("upload artifact %s: %w", artifact.Name, err)
	}

	c.log.Debug().Str("run", artifact.Run).Str("name", artifact.Name).
		Int64("size", artifact.Size).Msg("artifact uploaded")
	return nil
}
