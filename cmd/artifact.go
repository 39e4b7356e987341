package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alahiff/simtrack-client/internal/models"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Manage run artifacts",
}

var artifactSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Upload files as run artifacts",
	Long: `Upload local files as artifacts of a run.
Each file is stored under its basename unless --preserve-path or --name is given.`,
	Example: `  # Upload an output file
  simtrack artifact save --run-id <run-id> --file results.csv

  # Upload input files keeping their relative paths
  simtrack artifact save --run-id <run-id> --category input --preserve-path --file conf/solver.cfg --file mesh.dat`,
	RunE: artifactSave,
}

func init() {
	rootCmd.AddCommand(artifactCmd)
	artifactCmd.AddCommand(artifactSaveCmd)

	// Save command flags
	artifactSaveCmd.Flags().String("run-id", "", "Run ID to upload artifacts to (required)")
	artifactSaveCmd.Flags().StringSlice("file", []string{}, "File path to upload (can be specified multiple times)")
	artifactSaveCmd.Flags().String("category", models.CategoryOutput, "Artifact category (input/output/code)")
	artifactSaveCmd.Flags().String("name", "", "Explicit artifact name (only valid when uploading a single file)")
	artifactSaveCmd.Flags().Bool("preserve-path", false, "Store files under their relative path instead of the basename")
	artifactSaveCmd.MarkFlagRequired("run-id")
	artifactSaveCmd.MarkFlagRequired("file")
}

func artifactSave(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	files, _ := cmd.Flags().GetStringSlice("file")
	category, _ := cmd.Flags().GetString("category")
	name, _ := cmd.Flags().GetString("name")
	preservePath, _ := cmd.Flags().GetBool("preserve-path")

	// Validation
	if !models.ValidCategory(category) {
		return fmt.Errorf("invalid category: %s (valid: input, output, code)", category)
	}
	if len(files) > 1 && name != "" {
		return fmt.Errorf("--name can only be used when uploading a single file")
	}

	ctx := context.Background()
	successCount := 0

	for _, path := range files {
		artifact, err := models.FileArtifact(runID, path, category, preservePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		if name != "" {
			artifact.Name = name
		}

		content, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}

		err = client.SaveArtifact(ctx, artifact, content)
		content.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to upload %s: %v\n", path, err)
			continue
		}
		successCount++
	}

	if successCount == 0 {
		return fmt.Errorf("failed to upload any artifacts")
	}

	fmt.Printf("Successfully uploaded %d/%d artifacts\n", successCount, len(files))
	return nil
}
