package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"jaillog-backend/internal/config"
	"jaillog-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	otel       telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "jaillog",
	Short: "jaillog imports bookings from the PCSO jail log into a database.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		var err error
		otel, err = telemetry.SetupFromEnv(cmd.Context(), "jaillog")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := otel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output and dump http messages when dump_dir is set.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config.json5, by default it is searched for upward from the working directory.")
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
