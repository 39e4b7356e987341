package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/alahiff/simtrack-client/internal/models"
)

func ParseYAMLMetadata(reader io.Reader) (map[string]any, error) {
	var data map[string]any
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML metadata: %w", err)
	}

	return normalizeYAML(data), nil
}

func ParseYAMLMetrics(reader io.Reader) (*models.MetricsFile, error) {
	var data models.MetricsFile
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML metrics: %w", err)
	}

	return &data, nil
}

// normalizeYAML rewrites nested map keys to strings so YAML documents and
// JSON documents produce the same metadata shape.
func normalizeYAML(data map[string]any) map[string]any {
	for key, value := range data {
		data[key] = normalizeValue(value)
	}
	return data
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return normalizeYAML(v)
	case map[any]any:
		converted := make(map[string]any, len(v))
		for key, item := range v {
			converted[fmt.Sprint(key)] = normalizeValue(item)
		}
		return converted
	default:
		return value
	}
}
