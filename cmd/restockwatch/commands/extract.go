package commands

import (
	"fmt"
	"os"

	consolecmd "restockwatch/internal/commands"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/extract"
	"restockwatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <path/to/payload>",
	Short: "Runs the extractor over a saved page or json payload.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read payload", err)
		}
		extractor := extract.New(telemetry.SlogAPI{})
		record, err := extractor.Extract(cmd.Context(), raw)
		if err != nil {
			serviceutil.Fatal("extraction failed", err)
		}
		fmt.Println(consolecmd.VariantsTable(record).Render())
	},
}
