package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeINI(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	t.Setenv("OBSERVABILITY_URL", "")
	t.Setenv("OBSERVABILITY_TOKEN", "")
}

func TestResolveFromEnvironment(t *testing.T) {
	t.Setenv("OBSERVABILITY_URL", "https://tracking.example.com")
	t.Setenv("OBSERVABILITY_TOKEN", "secret")
	t.Setenv("HOME", t.TempDir())

	settings, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "https://tracking.example.com", settings.ServerURL)
	assert.Equal(t, "secret", settings.Token)
}

func TestResolveEnvironmentTakesPrecedence(t *testing.T) {
	t.Setenv("OBSERVABILITY_URL", "https://from-env.example.com")
	t.Setenv("OBSERVABILITY_TOKEN", "env-token")

	path := writeINI(t, "[server]\nurl = https://from-file.example.com\ntoken = file-token\n")

	settings, err := ResolveFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example.com", settings.ServerURL)
	assert.Equal(t, "env-token", settings.Token)
}

func TestResolveFromFile(t *testing.T) {
	clearEnv(t)

	path := writeINI(t, "[server]\nurl = https://from-file.example.com\ntoken = file-token\n")

	settings, err := ResolveFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-file.example.com", settings.ServerURL)
	assert.Equal(t, "file-token", settings.Token)
}

func TestResolveFileFillsOnlyMissingFields(t *testing.T) {
	clearEnv(t)
	t.Setenv("OBSERVABILITY_TOKEN", "env-token")

	path := writeINI(t, "[server]\nurl = https://from-file.example.com\ntoken = file-token\n")

	settings, err := ResolveFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-file.example.com", settings.ServerURL)
	assert.Equal(t, "env-token", settings.Token)
}

func TestResolveMissingConfiguration(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	_, err := Resolve()
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolveIncompleteConfiguration(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"url only", "[server]\nurl = https://tracking.example.com\n"},
		{"token only", "[server]\ntoken = secret\n"},
		{"wrong section", "[client]\nurl = https://tracking.example.com\ntoken = secret\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeINI(t, tt.content)

			_, err := ResolveFile(path)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNormalizeStripsTrailingSlash(t *testing.T) {
	t.Setenv("OBSERVABILITY_URL", "https://tracking.example.com/")
	t.Setenv("OBSERVABILITY_TOKEN", "secret")
	t.Setenv("HOME", t.TempDir())

	settings, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "https://tracking.example.com", settings.ServerURL)
}
