package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alahiff/simtrack-client/internal/config"
)

var log zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "simtrack",
	Short: "Observability tracking CLI",
	Long: `A command line tool for the observability tracking service.
Supports registering runs and logging metrics, events, and file artifacts.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = zerolog.DebugLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("url", "", "Tracking server URL (overrides OBSERVABILITY_URL)")
	rootCmd.PersistentFlags().String("token", "", "Access token (overrides OBSERVABILITY_TOKEN)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "HTTP request timeout (0 uses the client default)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func initConfig() {
	// Environment variables
	viper.BindEnv("url", "OBSERVABILITY_URL")
	viper.BindEnv("token", "OBSERVABILITY_TOKEN")
}

// resolveSettings layers flags over the environment and the
// observability.ini file: flags win, then environment, then file.
func resolveSettings() (*config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	if url := viper.GetString("url"); url != "" {
		settings.ServerURL = url
	}
	if token := viper.GetString("token"); token != "" {
		settings.Token = token
	}

	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}
