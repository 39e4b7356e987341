package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alahiff/simtrack-client/internal/config"
	"github.com/alahiff/simtrack-client/internal/models"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.Settings{ServerURL: server.URL, Token: "test-token"})
	require.NoError(t, err)
	return client, server
}

func TestNewClientRequiresSettings(t *testing.T) {
	_, err := NewClient(nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)

	_, err = NewClient(&config.Settings{ServerURL: "https://example.com"})
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestCreateRun(t *testing.T) {
	var received models.RunPayload
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/runs", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(models.RunResponse{ID: "run-42", Name: "assigned-name"})
	}))

	run, err := client.CreateRun(context.Background(), &models.RunPayload{
		Name:   "my-run",
		Folder: "/",
		Status: models.RunStatusRunning,
	})
	require.NoError(t, err)
	assert.Equal(t, "run-42", run.ID)
	assert.Equal(t, "assigned-name", run.Name)
	assert.Equal(t, "my-run", received.Name)
	assert.Equal(t, models.RunStatusRunning, received.Status)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthentication},
		{"forbidden", http.StatusForbidden, ErrAuthentication},
		{"bad request", http.StatusBadRequest, ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, ErrValidation},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"server error", http.StatusInternalServerError, ErrServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))

			_, err := client.CreateRun(context.Background(), &models.RunPayload{Name: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(&config.Settings{ServerURL: server.URL, Token: "test-token"},
		WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = client.CreateRun(context.Background(), &models.RunPayload{Name: "x"})
	assert.ErrorIs(t, err, ErrConnection)
}

func TestConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(&config.Settings{ServerURL: url, Token: "test-token"})
	require.NoError(t, err)

	_, err = client.CreateRun(context.Background(), &models.RunPayload{Name: "x"})
	assert.ErrorIs(t, err, ErrConnection)
}

func TestSendMetrics(t *testing.T) {
	var received metricsRequest
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/metrics", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))

	sets := []models.MetricSet{{
		Values:    map[string]float64{"loss": 0.5},
		Time:      1.5,
		Timestamp: "2024-03-15 12:30:45.000000",
		Step:      0,
	}}
	require.NoError(t, client.SendMetrics(context.Background(), "run-42", sets))

	assert.Equal(t, "run-42", received.Run)
	require.Len(t, received.Data, 1)
	assert.Equal(t, 0.5, received.Data[0].Values["loss"])
}

func TestSendMetricsEmptyBatch(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}))
	require.NoError(t, client.SendMetrics(context.Background(), "run-42", nil))
}

func TestSendEvent(t *testing.T) {
	var received eventRequest
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))

	event := models.Event{Message: "simulation started", Timestamp: "2024-03-15 12:30:45.000000"}
	require.NoError(t, client.SendEvent(context.Background(), "run-42", event))
	assert.Equal(t, "run-42", received.Run)
	assert.Equal(t, "simulation started", received.Message)
}

func TestSaveArtifactWithUpload(t *testing.T) {
	var uploaded []byte
	mux := http.NewServeMux()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/api/artifacts", func(w http.ResponseWriter, r *http.Request) {
		var artifact models.Artifact
		require.NoError(t, json.NewDecoder(r.Body).Decode(&artifact))
		assert.Equal(t, "results.csv", artifact.Name)

		json.NewEncoder(w).Encode(models.ArtifactResponse{URL: server.URL + "/storage/results.csv"})
	})
	mux.HandleFunc("/storage/results.csv", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		// Pre-signed upload, no bearer token.
		assert.Empty(t, r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		uploaded = body
	})

	client, err := NewClient(&config.Settings{ServerURL: server.URL, Token: "test-token"})
	require.NoError(t, err)

	artifact := &models.Artifact{Run: "run-42", Name: "results.csv", Category: models.CategoryOutput, Size: 9}
	require.NoError(t, client.SaveArtifact(context.Background(), artifact, strings.NewReader("0,0.5\n1,2")))
	assert.Equal(t, "0,0.5\n1,2", string(uploaded))
}

func TestSaveArtifactInlineStorage(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/artifacts", r.URL.Path)
		json.NewEncoder(w).Encode(models.ArtifactResponse{})
	}))

	artifact := &models.Artifact{Run: "run-42", Name: "small.txt", Category: models.CategoryInput, Size: 2}
	require.NoError(t, client.SaveArtifact(context.Background(), artifact, strings.NewReader("ab")))
}

func TestHeartbeat(t *testing.T) {
	var received map[string]string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/runs/heartbeat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))

	require.NoError(t, client.Heartbeat(context.Background(), "run-42"))
	assert.Equal(t, map[string]string{"id": "run-42"}, received)
}
