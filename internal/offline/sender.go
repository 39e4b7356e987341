package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alahiff/simtrack-client/internal/models"
	"github.com/alahiff/simtrack-client/internal/remote"
)

// Runs in the running state with no heartbeat for this long are declared
// lost, matching the server's own liveness window.
const lostAfter = 3 * time.Minute

// Sender replays offline run directories against the tracking server.
type Sender struct {
	client *remote.Client
	root   string
	log    zerolog.Logger
}

func NewSender(client *remote.Client, root string, log zerolog.Logger) *Sender {
	return &Sender{client: client, root: root, log: log}
}

// Send uploads every run found under the offline root. Failures in one run
// do not stop the others; the joined error reports all of them.
func (s *Sender) Send(ctx context.Context) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading offline directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := s.sendRun(ctx, filepath.Join(s.root, entry.Name())); err != nil {
			errs = append(errs, fmt.Errorf("run %s: %w", entry.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sender) sendRun(ctx context.Context, dir string) error {
	payload, err := readRunPayload(dir)
	if err != nil {
		return err
	}

	runID, err := s.ensureCreated(ctx, dir, payload)
	if err != nil {
		return err
	}

	running := markerExists(dir, string(models.RunStatusRunning))
	if running && heartbeatStale(dir) {
		s.log.Info().Str("dir", dir).Msg("no recent heartbeat, marking run lost")
		if err := s.client.UpdateRun(ctx, &models.RunUpdate{ID: runID, Status: models.RunStatusLost}); err != nil {
			return err
		}
		os.Remove(filepath.Join(dir, string(models.RunStatusRunning)))
		running = false
	}

	if running {
		if err := s.client.Heartbeat(ctx, runID); err != nil {
			return err
		}
	}

	return s.replay(ctx, dir, runID)
}

// ensureCreated registers the run remotely once, persisting the server ID
// next to the records so later invocations reuse it.
func (s *Sender) ensureCreated(ctx context.Context, dir string, payload *models.RunPayload) (string, error) {
	idPath := filepath.Join(dir, idFile)
	if data, err := os.ReadFile(idPath); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	s.log.Info().Str("name", payload.Name).Msg("creating run from offline record")
	run, err := s.client.CreateRun(ctx, payload)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(idPath, []byte(run.ID), 0o644); err != nil {
		return "", fmt.Errorf("persisting run id: %w", err)
	}
	return run.ID, nil
}

func (s *Sender) replay(ctx context.Context, dir, runID string) error {
	names, err := recordFiles(dir)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := s.sendRecord(ctx, path, name, runID); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := os.Rename(path, path+sentSuffix); err != nil {
			return fmt.Errorf("marking %s sent: %w", name, err)
		}
	}
	return nil
}

func (s *Sender) sendRecord(ctx context.Context, path, name, runID string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch recordKind(name) {
	case "metrics":
		var sets []models.MetricSet
		if err := json.Unmarshal(data, &sets); err != nil {
			return err
		}
		return s.client.SendMetrics(ctx, runID, sets)
	case "event":
		var event models.Event
		if err := json.Unmarshal(data, &event); err != nil {
			return err
		}
		return s.client.SendEvent(ctx, runID, event)
	case "update":
		var update models.RunUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			return err
		}
		update.ID = runID
		return s.client.UpdateRun(ctx, &update)
	case "artifact":
		var record artifactRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		record.Artifact.Run = runID
		if record.Content == "" {
			return s.client.SaveArtifact(ctx, &record.Artifact, nil)
		}
		content, err := os.Open(record.Content)
		if err != nil {
			return err
		}
		defer content.Close()
		return s.client.SaveArtifact(ctx, &record.Artifact, content)
	default:
		s.log.Warn().Str("record", name).Msg("skipping unknown record kind")
		return nil
	}
}

func readRunPayload(dir string) (*models.RunPayload, error) {
	data, err := os.ReadFile(filepath.Join(dir, runFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", runFile, err)
	}
	var payload models.RunPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", runFile, err)
	}
	return &payload, nil
}

// recordKind extracts the kind from "<seq>-<kind>.json".
func recordKind(name string) string {
	name = strings.TrimSuffix(name, ".json")
	if idx := strings.IndexByte(name, '-'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func markerExists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func heartbeatStale(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, heartbeatFile))
	if err != nil {
		// Never heartbeated; fall back to the age of the run record.
		info, err = os.Stat(filepath.Join(dir, runFile))
		if err != nil {
			return false
		}
	}
	return time.Since(info.ModTime()) > lostAfter
}
