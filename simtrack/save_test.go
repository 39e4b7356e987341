package simtrack_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alahiff/simtrack-client/simtrack"
)

func TestSaveUploadsFile(t *testing.T) {
	ts := newTrackingServer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("step,loss\n0,0.5\n"), 0o644))

	run := ts.newRun(t)
	require.NoError(t, run.Init(ctx, "my-run", nil, nil))
	require.NoError(t, run.Save(ctx, path))

	assert.Equal(t, []byte("step,loss\n0,0.5\n"), ts.uploads["/storage/results.csv"])
}

func TestSaveMissingFile(t *testing.T) {
	ts := newTrackingServer(t)
	ctx := context.Background()

	run := ts.newRun(t)
	require.NoError(t, run.Init(ctx, "my-run", nil, nil))

	err := run.Save(ctx, filepath.Join(t.TempDir(), "does-not-exist.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSaveEmptyFile(t *testing.T) {
	ts := newTrackingServer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	run := ts.newRun(t)
	require.NoError(t, run.Init(ctx, "my-run", nil, nil))

	assert.ErrorIs(t, run.Save(ctx, path), simtrack.ErrValidation)
}

func TestSaveInvalidCategory(t *testing.T) {
	ts := newTrackingServer(t)
	ctx := context.Background()

	run := ts.newRun(t)
	require.NoError(t, run.Init(ctx, "my-run", nil, nil))

	err := run.Save(ctx, "anything.txt", simtrack.WithCategory("model"))
	assert.ErrorIs(t, err, simtrack.ErrValidation)
}

func TestSaveWithName(t *testing.T) {
	ts := newTrackingServer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x01}, 0o644))

	run := ts.newRun(t)
	require.NoError(t, run.Init(ctx, "my-run", nil, nil))
	require.NoError(t, run.Save(ctx, path,
		simtrack.WithArtifactName("final/model.bin"), simtrack.WithCategory(simtrack.CategoryInput)))

	assert.Contains(t, ts.uploads, "/storage/final/model.bin")
}

func TestSaveDirectory(t *testing.T) {
	ts := newTrackingServer(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.txt"), []byte("bb"), 0o644))
	// Empty files are skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644))

	run := ts.newRun(t)
	require.NoError(t, run.Init(ctx, "my-run", nil, nil))
	require.NoError(t, run.SaveDirectory(ctx, dir))

	assert.Len(t, ts.uploads, 2)
}

func TestSaveDirectoryRejectsFile(t *testing.T) {
	ts := newTrackingServer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	run := ts.newRun(t)
	require.NoError(t, run.Init(ctx, "my-run", nil, nil))

	assert.ErrorIs(t, run.SaveDirectory(ctx, path), simtrack.ErrValidation)
}
