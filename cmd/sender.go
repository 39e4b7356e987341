package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alahiff/simtrack-client/internal/offline"
)

var senderCmd = &cobra.Command{
	Use:   "sender",
	Short: "Upload offline runs",
	Long: `Replay runs recorded in offline mode against the tracking server.
Runs are created remotely on first contact; already-sent records are skipped.`,
	RunE: senderRun,
}

func init() {
	rootCmd.AddCommand(senderCmd)

	// Sender command flags
	senderCmd.Flags().String("directory", "", "Offline cache directory (default $HOME/.simtrack)")
}

func senderRun(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient()
	if err != nil {
		return err
	}

	root, _ := cmd.Flags().GetString("directory")
	if root == "" {
		if root, err = offline.DefaultRoot(); err != nil {
			return err
		}
	}

	sender := offline.NewSender(client, root, log)
	if err := sender.Send(context.Background()); err != nil {
		return fmt.Errorf("failed to upload offline runs: %w", err)
	}

	fmt.Printf("Offline runs uploaded from %s\n", root)
	return nil
}
