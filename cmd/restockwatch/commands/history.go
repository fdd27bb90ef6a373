package commands

import (
	"errors"
	"fmt"

	consolecmd "restockwatch/internal/commands"
	"restockwatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 20, "The amount of restocks to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>]",
	Short: "Lists the most recent restocks recorded in the database.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if cfg.Database == "" {
			serviceutil.Fatal("history is disabled", errors.New("database is not configured"))
		}
		if *historyLimit <= 0 {
			serviceutil.Fatal("invalid limit", fmt.Errorf("limit must be positive, got %d", *historyLimit))
		}

		db, err := openDB(cfg)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer db.Close()

		entries, err := db.RecentRestocks(cmd.Context(), *historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to read history", err)
		}
		if len(entries) == 0 {
			fmt.Println("no restocks recorded yet")
			return
		}
		fmt.Println(consolecmd.HistoryTable(entries).Render())
	},
}
