package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/pders01/savepoint/internal/config"
	"github.com/pders01/savepoint/internal/oplog"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
	historyToon  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent operations",
	Long: `Show the most recent saves, restores, deletes and tag changes from the
operation log, oldest first.

Examples:
  savepoint history
  savepoint history -n 10`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyCmd.Flags().BoolVar(&historyToon, "toon", false, "Output in LLM-friendly toon format")
}

func runHistory(cmd *cobra.Command, args []string) error {
	// read-only, so the index lock is not taken
	entries, err := oplog.ReadRecent(filepath.Join(config.GetBackupRoot(), "operations.log"), historyLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No operations recorded")
		return nil
	}

	if done, err := printEncoded(entries, historyJSON, historyToon); done {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeader([]string{"Time", "Event", "Detail"})
	for _, e := range entries {
		table.Append([]string{e.Time.Local().Format("2006-01-02 15:04:05"), e.Event, e.Detail})
	}
	table.Render()
	return nil
}
