package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alahiff/simtrack-client/internal/models"
)

func ParseJSONMetadata(reader io.Reader) (map[string]any, error) {
	var data map[string]any
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON metadata: %w", err)
	}

	return data, nil
}

func ParseJSONMetrics(reader io.Reader) (*models.MetricsFile, error) {
	var data models.MetricsFile
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON metrics: %w", err)
	}

	return &data, nil
}
