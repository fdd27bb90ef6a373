package commands

import (
	"errors"
	"log/slog"
	"os"

	consolecmd "restockwatch/internal/commands"
	"restockwatch/internal/components/chrono"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/scheduler"
	"restockwatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--config <path/to/config.json5>]",
	Short: "Polls the product until interrupted, sending alerts on every restock.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()
		err := cfg.Validate()
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}

		shutdownOtel := setupOtel(ctx, cfg)
		defer shutdownOtel()
		telemetry.InstrumentPerfStats(ctx)

		tel := telemetry.SlogAPI{}
		dispatcher, err := cfg.Dispatchers(tel)
		if err != nil {
			serviceutil.Fatal("failed to create notification channels", err)
		}
		if len(dispatcher) == 0 {
			serviceutil.Fatal("no notification channel", errors.New("nothing to send alerts to"))
		}

		a, err := newApp(ctx, cfg, dispatcher, nil)
		if err != nil {
			serviceutil.Fatal("failed to create monitor", err)
		}
		defer a.Close()

		cron := chrono.NewStandardCron(tel)
		sched := scheduler.New(
			a.monitor,
			cron,
			dispatcher,
			chrono.NewStandardTime(nil),
			scheduler.Options{
				Interval:  cfg.Interval(),
				Immediate: true,
			},
			tel,
		)

		if cfg.EnableCommands {
			var history consolecmd.History
			if a.db != nil {
				history = *a.db
			}
			registry := consolecmd.Builtins(sched, a.monitor, a.store, history)
			console := consolecmd.NewConsole(registry, os.Stdin, os.Stdout, tel)
			go func() {
				err := console.Serve(ctx)
				if err != nil {
					tel.ReportWarning("console.serve", err)
				}
			}()
		}

		slog.Info(
			"watching product",
			"url", cfg.ProductURL,
			"interval", cfg.Interval().String(),
			"channels", len(dispatcher),
		)
		err = sched.Run(ctx)
		if err != nil {
			serviceutil.Fatal("failed to start scheduler", err)
		}
	},
}
