package commands

import (
	"errors"
	"fmt"

	consolecmd "restockwatch/internal/commands"
	"restockwatch/internal/notify"
	"restockwatch/lib/restyutil"
	"restockwatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

var dumpDir *string

func init() {
	dumpDir = checkCmd.Flags().String("dump", "", "Writes every http exchange to this directory.")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [--dump <dir>]",
	Short: "Runs one cycle without committing or notifying and prints what it saw.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()
		if cfg.ProductURL == "" {
			serviceutil.Fatal("invalid config", errors.New("product_url is required"))
		}

		var dump restyutil.InstrumentOutput
		if *dumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(*dumpDir)
			if err != nil {
				serviceutil.Fatal("failed to create dump directory", err)
			}
			dump = output
		}

		a, err := newApp(ctx, cfg, notify.Multi{}, dump)
		if err != nil {
			serviceutil.Fatal("failed to create monitor", err)
		}
		defer a.Close()

		result, err := a.monitor.Check(ctx)
		if err != nil {
			serviceutil.Fatal("check failed", err)
		}

		fmt.Println(consolecmd.VariantsTable(result.Record).Render())
		if len(result.Unmatched) > 0 {
			fmt.Printf("tracked variants not found: %v\n", result.Unmatched)
		}
		switch {
		case result.Baseline:
			fmt.Println("no committed snapshot, this would be the baseline cycle.")
		case len(result.Events) == 0:
			fmt.Println("nothing restocked since the committed snapshot.")
		default:
			fmt.Println(consolecmd.EventsTable(result.Events).Render())
		}
	},
}
