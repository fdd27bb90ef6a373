package commands

import (
	"context"
	"fmt"
	"os"

	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/config"
	"restockwatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

var configPath *string
var debug *bool

var rootCmd = &cobra.Command{
	Use:   "restockwatch",
	Short: "restockwatch watches a product page and alerts when a color comes back in stock.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file, config.local.json5 next to it overrides it.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enables debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if *debug {
		cfg.Debug = true
	}
	telemetry.InitSlog(cfg.Debug)
	return cfg
}

// setupOtel starts the otel exporters, the returned function flushes them.
func setupOtel(ctx context.Context, cfg config.Config) func() {
	otel, err := telemetry.Setup(ctx, "restockwatch", cfg.Otlp)
	if err != nil {
		serviceutil.Fatal("failed to setup otel", err)
	}
	return func() {
		err := otel.Shutdown(context.WithoutCancel(ctx))
		if err != nil {
			telemetry.SlogAPI{}.ReportWarning("otel.shutdown", err)
		}
	}
}
