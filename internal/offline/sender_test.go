package offline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alahiff/simtrack-client/internal/config"
	"github.com/alahiff/simtrack-client/internal/models"
	"github.com/alahiff/simtrack-client/internal/remote"
)

type fakeServer struct {
	mu      sync.Mutex
	created []models.RunPayload
	updates []models.RunUpdate
	metrics [][]models.MetricSet
	events  []models.Event

	server *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	fake := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var payload models.RunPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			fake.mu.Lock()
			fake.created = append(fake.created, payload)
			fake.mu.Unlock()
			json.NewEncoder(w).Encode(models.RunResponse{ID: "srv-1", Name: payload.Name})
		case http.MethodPut:
			var update models.RunUpdate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
			fake.mu.Lock()
			fake.updates = append(fake.updates, update)
			fake.mu.Unlock()
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/runs/heartbeat", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Run  string             `json:"run"`
			Data []models.MetricSet `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fake.mu.Lock()
		fake.metrics = append(fake.metrics, req.Data)
		fake.mu.Unlock()
	})
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		var event models.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		fake.mu.Lock()
		fake.events = append(fake.events, event)
		fake.mu.Unlock()
	})
	mux.HandleFunc("/api/artifacts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.ArtifactResponse{})
	})

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeServer) client(t *testing.T) *remote.Client {
	t.Helper()

	client, err := remote.NewClient(&config.Settings{ServerURL: f.server.URL, Token: "test-token"})
	require.NoError(t, err)
	return client
}

func TestSenderReplaysRecords(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(root, "uid-1", zerolog.Nop())
	require.NoError(t, err)
	_, err = store.CreateRun(ctx, &models.RunPayload{Name: "offline-run", Folder: "/", Status: models.RunStatusRunning})
	require.NoError(t, err)
	require.NoError(t, store.SendMetrics(ctx, "uid-1", []models.MetricSet{{Values: map[string]float64{"loss": 0.5}}}))
	require.NoError(t, store.SendEvent(ctx, "uid-1", models.Event{Message: "started"}))
	require.NoError(t, store.SaveArtifact(ctx, &models.Artifact{Name: "out.txt", Category: models.CategoryOutput, Size: 2}, strings.NewReader("ab")))

	fake := newFakeServer(t)
	sender := NewSender(fake.client(t), root, zerolog.Nop())
	require.NoError(t, sender.Send(ctx))

	require.Len(t, fake.created, 1)
	assert.Equal(t, "offline-run", fake.created[0].Name)
	require.Len(t, fake.metrics, 1)
	assert.Equal(t, 0.5, fake.metrics[0][0].Values["loss"])
	require.Len(t, fake.events, 1)
	assert.Equal(t, "started", fake.events[0].Message)

	// Server ID persisted so the next invocation does not re-create.
	id, err := os.ReadFile(filepath.Join(store.Dir(), idFile))
	require.NoError(t, err)
	assert.Equal(t, "srv-1", string(id))

	// Replayed records are renamed, a second pass sends nothing new.
	names, err := recordFiles(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, sender.Send(ctx))
	assert.Len(t, fake.created, 1)
	assert.Len(t, fake.metrics, 1)
}

func TestSenderMarksStaleRunsLost(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(root, "uid-1", zerolog.Nop())
	require.NoError(t, err)
	_, err = store.CreateRun(ctx, &models.RunPayload{Name: "stale-run", Folder: "/", Status: models.RunStatusRunning})
	require.NoError(t, err)

	// No heartbeat was ever written; age the run record past the window.
	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), runFile), old, old))

	fake := newFakeServer(t)
	require.NoError(t, NewSender(fake.client(t), root, zerolog.Nop()).Send(ctx))

	require.Len(t, fake.updates, 1)
	assert.Equal(t, models.RunStatusLost, fake.updates[0].Status)
	assert.NoFileExists(t, filepath.Join(store.Dir(), string(models.RunStatusRunning)))
}

func TestSenderEmptyRoot(t *testing.T) {
	fake := newFakeServer(t)
	sender := NewSender(fake.client(t), filepath.Join(t.TempDir(), "missing"), zerolog.Nop())
	require.NoError(t, sender.Send(context.Background()))
	assert.Empty(t, fake.created)
}
