package simtrack_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alahiff/simtrack-client/internal/models"
	"github.com/alahiff/simtrack-client/simtrack"
)

func TestOfflineModeRecordsLocally(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	run, err := simtrack.New(
		simtrack.WithMode(simtrack.ModeOffline),
		simtrack.WithOfflineDirectory(root),
		simtrack.WithoutHeartbeat(),
	)
	require.NoError(t, err)

	require.NoError(t, run.Init(ctx, "offline-run", map[string]any{"solver": "openfoam"}, []string{"cfd"}))
	require.NoError(t, run.Log(ctx, map[string]float64{"residual": 0.01}))
	require.NoError(t, run.Close(ctx))

	dir := filepath.Join(root, run.UID())
	data, err := os.ReadFile(filepath.Join(dir, "run.json"))
	require.NoError(t, err)

	var payload models.RunPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "offline-run", payload.Name)
	assert.Equal(t, []string{"cfd"}, payload.Tags)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var kinds []string
	for _, entry := range entries {
		kinds = append(kinds, entry.Name())
	}
	assert.Contains(t, kinds, "000001-metrics.json")
	assert.Contains(t, kinds, "000002-update.json")
}
