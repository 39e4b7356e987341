// Package offline persists run activity as local JSON records when no
// server is reachable, and replays those records later through the sender.
// The store implements the same operation surface as the remote client, so
// the run client can switch backends without changing behavior.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alahiff/simtrack-client/internal/models"
)

const (
	runFile       = "run.json"
	idFile        = "id"
	heartbeatFile = "heartbeat"
	contentDir    = "files"
	sentSuffix    = ".sent"
)

// Store writes one run's records under <root>/<uid>/. Records are named
// with a monotonically increasing sequence so replay order matches
// submission order.
type Store struct {
	uid string
	dir string
	log zerolog.Logger

	mu  sync.Mutex
	seq int
}

// DefaultRoot is the offline cache directory, $HOME/.simtrack.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating offline directory: %w", err)
	}
	return filepath.Join(home, ".simtrack"), nil
}

func NewStore(root, uid string, log zerolog.Logger) (*Store, error) {
	dir := filepath.Join(root, uid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating offline directory %s: %w", dir, err)
	}

	store := &Store{uid: uid, dir: dir, log: log}
	store.seq = lastSequence(dir)
	return store, nil
}

// Dir returns the run's offline directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) CreateRun(_ context.Context, payload *models.RunPayload) (*models.RunResponse, error) {
	if err := s.writeJSON(filepath.Join(s.dir, runFile), payload); err != nil {
		return nil, err
	}
	if err := s.touch(string(payload.Status)); err != nil {
		return nil, err
	}

	s.log.Debug().Str("dir", s.dir).Msg("run recorded offline")
	return &models.RunResponse{ID: s.uid, Name: payload.Name}, nil
}

func (s *Store) UpdateRun(_ context.Context, update *models.RunUpdate) error {
	if err := s.writeRecord("update", update); err != nil {
		return err
	}
	if update.Status.Terminal() {
		if err := s.touch(string(update.Status)); err != nil {
			return err
		}
		os.Remove(filepath.Join(s.dir, string(models.RunStatusRunning)))
	}
	return nil
}

func (s *Store) SendMetrics(_ context.Context, _ string, sets []models.MetricSet) error {
	return s.writeRecord("metrics", sets)
}

func (s *Store) SendEvent(_ context.Context, _ string, event models.Event) error {
	return s.writeRecord("event", event)
}

type artifactRecord struct {
	Artifact models.Artifact `json:"artifact"`
	Content  string          `json:"content,omitempty"`
}

func (s *Store) SaveArtifact(_ context.Context, artifact *models.Artifact, content io.Reader) error {
	record := artifactRecord{Artifact: *artifact}

	if content != nil {
		if err := os.MkdirAll(filepath.Join(s.dir, contentDir), 0o755); err != nil {
			return fmt.Errorf("creating content directory: %w", err)
		}
		name := fmt.Sprintf("%06d-%s", s.next(), filepath.Base(artifact.Name))
		path := filepath.Join(s.dir, contentDir, name)

		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("storing artifact content: %w", err)
		}
		if _, err := io.Copy(file, content); err != nil {
			file.Close()
			return fmt.Errorf("storing artifact content: %w", err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("storing artifact content: %w", err)
		}
		record.Content = path
	}

	return s.writeRecord("artifact", record)
}

func (s *Store) Heartbeat(_ context.Context, _ string) error {
	path := filepath.Join(s.dir, heartbeatFile)
	if err := s.touch(heartbeatFile); err != nil {
		return err
	}
	now := time.Now()
	return os.Chtimes(path, now, now)
}

func (s *Store) writeRecord(kind string, payload any) error {
	name := fmt.Sprintf("%06d-%s.json", s.next(), kind)
	return s.writeJSON(filepath.Join(s.dir, name), payload)
}

func (s *Store) writeJSON(path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (s *Store) touch(name string) error {
	file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("writing marker %s: %w", name, err)
	}
	return file.Close()
}

func (s *Store) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// lastSequence recovers the record counter from an existing directory so a
// reconnecting process keeps appending in order.
func lastSequence(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	last := 0
	for _, entry := range entries {
		name := entry.Name()
		idx := strings.IndexByte(name, '-')
		if idx <= 0 {
			continue
		}
		if n, err := strconv.Atoi(name[:idx]); err == nil && n > last {
			last = n
		}
	}
	return last
}

// recordFiles lists replayable records in submission order.
func recordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == runFile {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
