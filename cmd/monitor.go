package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alahiff/simtrack-client/internal/monitor"
	"github.com/alahiff/simtrack-client/simtrack"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor an external process as a run",
	Long: `Register a run and follow an externally launched process via its PID
file, logging CPU and memory metrics until the process exits. The run is
closed as completed on a clean exit and terminated on interruption.`,
	Example: `  # Launch a solver in the background and monitor it
  ./solver input.dat & echo $! > job.pid
  simtrack monitor --name solver-run-1 --pid-file job.pid --interval 10s`,
	RunE: monitorRun,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	// Monitor command flags
	monitorCmd.Flags().String("name", "", "Run name (required)")
	monitorCmd.Flags().String("pid-file", "", "File containing the PID of the process to monitor (required)")
	monitorCmd.Flags().Duration("interval", monitor.DefaultInterval, "Sampling interval")
	monitorCmd.Flags().Duration("wait-timeout", time.Minute, "How long to wait for the PID file to appear")
	monitorCmd.Flags().StringArray("tag", []string{}, "Tag to apply to the run")
	monitorCmd.Flags().Bool("offline", false, "Record the run locally instead of sending it")
	monitorCmd.MarkFlagRequired("name")
	monitorCmd.MarkFlagRequired("pid-file")
}

func monitorRun(cmd *cobra.Command, args []string) error {
	// Parse flags
	name, _ := cmd.Flags().GetString("name")
	pidFile, _ := cmd.Flags().GetString("pid-file")
	interval, _ := cmd.Flags().GetDuration("interval")
	waitTimeout, _ := cmd.Flags().GetDuration("wait-timeout")
	tags, _ := cmd.Flags().GetStringArray("tag")
	offline, _ := cmd.Flags().GetBool("offline")

	opts := []simtrack.Option{
		simtrack.WithLogger(log),
		// Samples are buffered and flushed in batches rather than sent
		// one request per tick.
		simtrack.WithBuffering(5*time.Second, 1000),
	}
	if offline {
		opts = append(opts, simtrack.WithMode(simtrack.ModeOffline))
	} else {
		settings, err := resolveSettings()
		if err != nil {
			return err
		}
		opts = append(opts, simtrack.WithServer(settings.ServerURL, settings.Token))
	}

	run, err := simtrack.New(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metadata := map[string]any{"pid_file": pidFile}
	if err := run.Init(ctx, name, metadata, tags); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	fmt.Printf("%s\n", run.ID())

	watcher := &monitor.Monitor{
		PIDFile:     pidFile,
		Interval:    interval,
		WaitTimeout: waitTimeout,
		Log:         log,
	}

	err = watcher.Watch(ctx, run)
	if err == context.Canceled {
		// Interrupted: leave a terminated run behind, not a lost one.
		cleanup, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if statusErr := run.SetStatus(cleanup, simtrack.StatusTerminated); statusErr != nil {
			return statusErr
		}
		return run.Close(cleanup)
	}
	return err
}
