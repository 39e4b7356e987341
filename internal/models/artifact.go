package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

// Artifact categories recognised by the server.
const (
	CategoryInput  = "input"
	CategoryOutput = "output"
	CategoryCode   = "code"
)

var ErrEmptyFile = errors.New("zero-sized files are not supported")

// Artifact is the registration record for a file associated with a run.
type Artifact struct {
	Run          string `json:"run"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Type         string `json:"type"`
	Checksum     string `json:"checksum"`
	Size         int64  `json:"size"`
	OriginalPath string `json:"originalPath"`
	Storage      string `json:"storage,omitempty"`
}

// ArtifactResponse carries the pre-signed storage URL returned by the
// server when an artifact is registered.
type ArtifactResponse struct {
	URL string `json:"url"`
}

// ValidCategory reports whether the category is one the server accepts.
func ValidCategory(category string) bool {
	switch category {
	case CategoryInput, CategoryOutput, CategoryCode:
		return true
	}
	return false
}

// FileArtifact stats path and assembles the registration record for it:
// name (basename, or the cleaned path when preservePath is set), mimetype
// guessed from the extension, size, and sha256 checksum.
//
// A missing path surfaces the fs.ErrNotExist from the stat call; empty
// files are rejected with ErrEmptyFile.
func FileArtifact(runID, path, category string, preservePath bool) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("artifact %s: is a directory", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("artifact %s: %w", path, ErrEmptyFile)
	}

	checksum, err := fileChecksum(path)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}

	name := filepath.Base(path)
	if preservePath {
		name = filepath.ToSlash(filepath.Clean(path))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}

	mimetype := mime.TypeByExtension(filepath.Ext(path))
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	return &Artifact{
		Run:          runID,
		Name:         name,
		Category:     category,
		Type:         mimetype,
		Checksum:     checksum,
		Size:         info.Size(),
		OriginalPath: absPath,
	}, nil
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// IsNotExist reports whether err stems from a missing artifact path.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
