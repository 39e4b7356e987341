package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alahiff/simtrack-client/internal/models"
)

var logEventCmd = &cobra.Command{
	Use:   "event",
	Short: "Log an event to a run",
	Long:  "Append a free-text message to a run's event stream",
	RunE:  logEvent,
}

func init() {
	logCmd.AddCommand(logEventCmd)

	// Event command flags
	logEventCmd.Flags().String("run-id", "", "Run ID to log the event to (required)")
	logEventCmd.Flags().String("message", "", "Event message (required)")
	logEventCmd.MarkFlagRequired("run-id")
	logEventCmd.MarkFlagRequired("message")
}

func logEvent(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	message, _ := cmd.Flags().GetString("message")

	event := models.Event{
		Message:   message,
		Timestamp: models.FormatTimestamp(time.Now()),
	}

	ctx := context.Background()
	if err := client.SendEvent(ctx, runID, event); err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}

	fmt.Printf("Successfully logged event\n")
	return nil
}
