package simtrack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alahiff/simtrack-client/internal/models"
)

// Save uploads a local file as an artifact of the run. The path must
// reference an existing, non-empty file; a missing path surfaces the
// underlying fs.ErrNotExist.
func (r *Run) Save(ctx context.Context, path string, opts ...SaveOption) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.save(ctx, path, opts...))
}

func (r *Run) save(ctx context.Context, path string, opts ...SaveOption) error {
	r.mu.Lock()
	if r.state != stateActive {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot save a file, initialize the run first", ErrRunState)
	}
	runID := r.id
	r.mu.Unlock()

	options := saveOptions{category: models.CategoryOutput}
	for _, opt := range opts {
		opt(&options)
	}
	if !models.ValidCategory(options.category) {
		return fmt.Errorf("%w: invalid artifact category %q", ErrValidation, options.category)
	}

	artifact, err := models.FileArtifact(runID, path, options.category, options.preservePath)
	if err != nil {
		if errors.Is(err, models.ErrEmptyFile) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return err
	}
	if options.name != "" {
		artifact.Name = options.name
	}
	if options.filetype != "" {
		artifact.Type = options.filetype
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("artifact %s: %w", path, err)
	}
	defer file.Close()

	if err := r.backend.SaveArtifact(ctx, artifact, file); err != nil {
		return err
	}

	r.log.Info().Str("run", runID).Str("name", artifact.Name).
		Str("category", artifact.Category).Msg("artifact saved")
	return nil
}

// SaveDirectory uploads every regular file under dir, preserving relative
// paths. Empty files are skipped with a warning rather than failing the
// whole upload.
func (r *Run) SaveDirectory(ctx context.Context, dir string, opts ...SaveOption) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.saveDirectory(ctx, dir, opts...))
}

func (r *Run) saveDirectory(ctx context.Context, dir string, opts ...SaveOption) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrValidation, dir)
	}

	opts = append(opts, PreservePath())
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		saveErr := r.save(ctx, path, opts...)
		if saveErr != nil && errors.Is(saveErr, ErrValidation) {
			r.log.Warn().Str("path", path).Err(saveErr).Msg("skipping file")
			return nil
		}
		return saveErr
	})
}
