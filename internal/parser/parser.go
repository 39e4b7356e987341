// Package parser reads metadata and metrics documents supplied to the CLI
// as JSON or YAML files.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alahiff/simtrack-client/internal/models"
)

// ParseMetadataFile dispatches on the file extension (.json, .yaml, .yml).
func ParseMetadataFile(path string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseJSONMetadata(file)
	case ".yaml", ".yml":
		return ParseYAMLMetadata(file)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}

// ParseMetricsFile dispatches on the file extension (.json, .yaml, .yml).
func ParseMetricsFile(path string) (*models.MetricsFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseJSONMetrics(file)
	case ".yaml", ".yml":
		return ParseYAMLMetrics(file)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}
