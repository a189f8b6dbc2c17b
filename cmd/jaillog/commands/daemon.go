package commands

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"jaillog-backend/internal/chrono"
	"jaillog-backend/lib/serviceutil"
	"jaillog-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	daemonSchedule string
	daemonNow      bool
)

func init() {
	daemonCmd.Flags().StringVar(&daemonSchedule, "schedule", "", "Cron schedule in America/New_York, defaults to the config's schedule.")
	daemonCmd.Flags().BoolVar(&daemonNow, "now", false, "Run an import immediately before waiting for the schedule.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon [--schedule <cron>] [--now]",
	Short: "Imports the jail log on a schedule until interrupted.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		if daemonSchedule != "" {
			cfg.Schedule = daemonSchedule
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			serviceutil.Fatal("failed to initialize", err)
		}
		defer a.Close()

		// the cron chain skips a tick while a run is in progress, the mutex
		// keeps --now from overlapping the first tick.
		var running sync.Mutex
		runOnce := func() {
			running.Lock()
			defer running.Unlock()

			a.banner()
			summary, err := a.coordinator.Run(ctx)
			renderSummary(summary)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("import failed", "run_id", summary.RunID, "err", err)
				a.notify(ctx, summary, err)
			}
		}

		cron := chrono.NewStandardCron(a.tel)
		err = cron.Cron(cfg.Schedule, runOnce)
		if err != nil {
			serviceutil.Fatal("failed to schedule import", err)
		}
		telemetry.InstrumentPerfStats(ctx, time.Minute)

		var first sync.WaitGroup
		if daemonNow {
			first.Add(1)
			go func() {
				defer first.Done()
				runOnce()
			}()
		}
		cron.Start()
		slog.Info("waiting for schedule", "schedule", cfg.Schedule)

		<-ctx.Done()
		slog.Info("shutting down")
		cron.Stop()
		first.Wait()
	},
}
