package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alahiff/simtrack-client/internal/models"
	"github.com/alahiff/simtrack-client/internal/parser"
	"github.com/alahiff/simtrack-client/internal/remote"
)

// Terminal statuses accepted by `run close`.
var validCloseStatuses = map[string]models.RunStatus{
	"completed":  models.RunStatusCompleted,
	"failed":     models.RunStatusFailed,
	"terminated": models.RunStatusTerminated,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Manage runs",
	Long:  "Register, update, and close runs on the tracking server",
}

var runInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Register a new run",
	Long:  "Register a new run and print its ID",
	RunE:  runInit,
}

var runCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close a run",
	Long:  "Set a terminal status on an existing run",
	RunE:  runClose,
}

var runAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abort a run",
	Long:  "Terminate an existing run immediately, optionally recording a reason",
	RunE:  runAbort,
}

var runUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update run metadata or tags",
	RunE:  runUpdate,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runInitCmd)
	runCmd.AddCommand(runCloseCmd)
	runCmd.AddCommand(runAbortCmd)
	runCmd.AddCommand(runUpdateCmd)

	// Init command flags
	runInitCmd.Flags().String("name", "", "Run name (required)")
	runInitCmd.Flags().StringArray("tag", []string{}, "Tag to apply (can be specified multiple times)")
	runInitCmd.Flags().String("metadata-file", "", "Load run metadata from file (JSON/YAML)")
	runInitCmd.Flags().String("description", "", "Run description")
	runInitCmd.Flags().String("folder", "/", "Server-side folder for the run")
	runInitCmd.MarkFlagRequired("name")

	// Close command flags
	runCloseCmd.Flags().String("run-id", "", "Run ID to close (required)")
	runCloseCmd.Flags().String("status", "completed", "Terminal status (completed/failed/terminated)")
	runCloseCmd.MarkFlagRequired("run-id")

	// Abort command flags
	runAbortCmd.Flags().String("run-id", "", "Run ID to abort (required)")
	runAbortCmd.Flags().String("reason", "", "Reason recorded as an event before aborting")
	runAbortCmd.MarkFlagRequired("run-id")

	// Update command flags
	runUpdateCmd.Flags().String("run-id", "", "Run ID to update (required)")
	runUpdateCmd.Flags().String("metadata-file", "", "Metadata file to merge into the run (JSON/YAML)")
	runUpdateCmd.Flags().StringArray("tag", []string{}, "Replacement tags")
	runUpdateCmd.MarkFlagRequired("run-id")
}

func newRemoteClient() (*remote.Client, error) {
	settings, err := resolveSettings()
	if err != nil {
		return nil, err
	}

	opts := []remote.Option{remote.WithLogger(log)}
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		opts = append(opts, remote.WithTimeout(timeout))
	}
	return remote.NewClient(settings, opts...)
}

func runInit(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	// Parse flags
	name, _ := cmd.Flags().GetString("name")
	tags, _ := cmd.Flags().GetStringArray("tag")
	metadataFile, _ := cmd.Flags().GetString("metadata-file")
	description, _ := cmd.Flags().GetString("description")
	folder, _ := cmd.Flags().GetString("folder")

	metadata := models.Metadata{}
	if metadataFile != "" {
		raw, err := parser.ParseMetadataFile(metadataFile)
		if err != nil {
			return err
		}
		if metadata, err = models.MetadataFromAny(raw); err != nil {
			return err
		}
	}

	payload := &models.RunPayload{
		Name:        name,
		Metadata:    metadata,
		Tags:        tags,
		Description: description,
		Folder:      folder,
		Status:      models.RunStatusRunning,
	}

	ctx := context.Background()
	run, err := client.CreateRun(ctx, payload)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	// Output only the run ID for shell scripting
	fmt.Printf("%s\n", run.ID)

	return nil
}

func runClose(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	status, _ := cmd.Flags().GetString("status")

	runStatus, valid := validCloseStatuses[status]
	if !valid {
		return fmt.Errorf("invalid status: %s (valid: completed, failed, terminated)", status)
	}

	ctx := context.Background()
	if err := client.UpdateRun(ctx, &models.RunUpdate{ID: runID, Status: runStatus}); err != nil {
		return fmt.Errorf("failed to close run: %w", err)
	}

	fmt.Printf("Run %s closed with status %s\n", runID, status)
	return nil
}

func runAbort(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	reason, _ := cmd.Flags().GetString("reason")

	ctx := context.Background()
	if reason != "" {
		event := models.Event{
			Message:   reason,
			Timestamp: models.FormatTimestamp(time.Now()),
		}
		if err := client.SendEvent(ctx, runID, event); err != nil {
			return fmt.Errorf("failed to record abort reason: %w", err)
		}
	}

	if err := client.UpdateRun(ctx, &models.RunUpdate{ID: runID, Status: models.RunStatusTerminated}); err != nil {
		return fmt.Errorf("failed to abort run: %w", err)
	}

	fmt.Printf("Run %s aborted\n", runID)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	metadataFile, _ := cmd.Flags().GetString("metadata-file")
	tags, _ := cmd.Flags().GetStringArray("tag")

	if metadataFile == "" && len(tags) == 0 {
		return fmt.Errorf("either --metadata-file or --tag must be specified")
	}

	update := &models.RunUpdate{ID: runID, Tags: tags}
	if metadataFile != "" {
		raw, err := parser.ParseMetadataFile(metadataFile)
		if err != nil {
			return err
		}
		if update.Metadata, err = models.MetadataFromAny(raw); err != nil {
			return err
		}
	}

	ctx := context.Background()
	if err := client.UpdateRun(ctx, update); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	fmt.Printf("Run %s updated\n", runID)
	return nil
}
