package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alahiff/simtrack-client/internal/models"
	"github.com/alahiff/simtrack-client/internal/parser"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log metrics and events",
	Long:  "Log metrics and events to an existing run",
}

var logMetricsCmd = &cobra.Command{
	Use:   "metrics [key=value ...]",
	Short: "Log metrics to a run",
	Long:  "Log metric values given on the command line or loaded from a file",
	Example: `  # Log two metrics in one set
  simtrack log metrics --run-id <run-id> loss=0.42 accuracy=0.91

  # Replay metric sets from a file
  simtrack log metrics --run-id <run-id> --from-file metrics.yaml`,
	RunE: logMetrics,
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logMetricsCmd)

	// Metrics command flags
	logMetricsCmd.Flags().String("run-id", "", "Run ID to log metrics to (required)")
	logMetricsCmd.Flags().String("from-file", "", "Load metric sets from file (JSON/YAML)")
	logMetricsCmd.Flags().Int64("step", -1, "Step number for command-line values (optional)")
	logMetricsCmd.MarkFlagRequired("run-id")
}

func logMetrics(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	fromFile, _ := cmd.Flags().GetString("from-file")
	step, _ := cmd.Flags().GetInt64("step")

	if len(args) == 0 && fromFile == "" {
		return fmt.Errorf("either key=value arguments or --from-file must be specified")
	}
	if len(args) > 0 && fromFile != "" {
		return fmt.Errorf("key=value arguments and --from-file are mutually exclusive")
	}

	ctx := context.Background()

	if len(args) > 0 {
		values, err := parseMetricArgs(args)
		if err != nil {
			return err
		}
		set := models.MetricSet{
			Values:    values,
			Timestamp: models.FormatTimestamp(time.Now()),
		}
		if step >= 0 {
			set.Step = step
		}
		if err := client.SendMetrics(ctx, runID, []models.MetricSet{set}); err != nil {
			return fmt.Errorf("failed to log metrics: %w", err)
		}

		fmt.Printf("Successfully logged %d metrics\n", len(values))
		return nil
	}

	metricsFile, err := parser.ParseMetricsFile(fromFile)
	if err != nil {
		return err
	}

	// Entries without a step are numbered by position.
	sets := make([]models.MetricSet, len(metricsFile.Metrics))
	now := models.FormatTimestamp(time.Now())
	for i, entry := range metricsFile.Metrics {
		set := entry.Set(int64(i))
		if set.Timestamp == "" {
			set.Timestamp = now
		} else if !models.ValidTimestamp(set.Timestamp) {
			return fmt.Errorf("invalid timestamp %q (expected %s)", set.Timestamp, models.TimestampFormat)
		}
		sets[i] = set
	}

	if err := client.SendMetrics(ctx, runID, sets); err != nil {
		return fmt.Errorf("failed to log metrics from file: %w", err)
	}

	fmt.Printf("Successfully logged %d metric sets from %s\n", len(sets), fromFile)
	return nil
}

// parseMetricArgs parses command-line metrics in key=value format.
func parseMetricArgs(args []string) (map[string]float64, error) {
	values := make(map[string]float64, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid metric format: %s (expected key=value)", arg)
		}
		value, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid metric value for %s: %s", parts[0], parts[1])
		}
		values[parts[0]] = value
	}
	return values, nil
}
