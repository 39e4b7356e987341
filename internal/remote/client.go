// Package remote is the REST client for the observability tracking server.
// It covers run registration and updates, metric and event submission,
// artifact registration and upload, and heartbeats. All calls are
// synchronous and carry the caller's context.
package remote

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/alahiff/simtrack-client/internal/config"
)

const (
	defaultTimeout = 15 * time.Second
	uploadTimeout  = 30 * time.Second

	heartbeatRetries = 3
	heartbeatWait    = 2 * time.Second
	heartbeatMaxWait = 10 * time.Second
)

type Client struct {
	http *resty.Client

	// heartbeats run unattended, so unlike the core calls they retry
	// with backoff
	hb *resty.Client

	// storage uploads go to pre-signed URLs outside the API host and
	// must not carry the bearer token
	storage *resty.Client

	log zerolog.Logger
}

type Option func(*Client)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(timeout) }
}

// NewClient validates the settings and builds a client authenticated with
// the bearer token.
func NewClient(settings *config.Settings, opts ...Option) (*Client, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no settings supplied", config.ErrConfiguration)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(settings.ServerURL, "/")

	client := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(settings.Token).
			SetTimeout(defaultTimeout),
		hb: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(settings.Token).
			SetTimeout(defaultTimeout).
			SetRetryCount(heartbeatRetries).
			SetRetryWaitTime(heartbeatWait).
			SetRetryMaxWaitTime(heartbeatMaxWait),
		storage: resty.New().
			SetTimeout(uploadTimeout),
		log: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}
