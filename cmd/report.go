package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pders01/savepoint/internal/models"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <template>",
	Short: "Generate pre-defined reports",
	Long: `Generate formatted reports using pre-defined templates.

Available templates:
  daily   - Summary stats followed by today's snapshots

Examples:
  savepoint report daily`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	template := args[0]

	switch template {
	case "daily":
		return generateDailyReport()
	default:
		return fmt.Errorf("unknown report template: %s (available: daily)", template)
	}
}

func generateDailyReport() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snapshots, err := a.snapshots.List()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	tags, err := a.tags.ListTags()
	if err != nil {
		return err
	}

	return writeDailyReport(os.Stdout, snapshots, tags)
}

// writeDailyReport writes the summary stats and today's snapshots to w
func writeDailyReport(w io.Writer, snapshots []models.Snapshot, tags []models.TagInfo) error {
	fmt.Fprintln(w, "Daily Snapshot Report")
	fmt.Fprintln(w, "═════════════════════")
	fmt.Fprintln(w)

	if len(snapshots) == 0 {
		fmt.Fprintln(w, "No snapshots found")
		return nil
	}
	printStats(w, collectStats(snapshots, tags))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Today's Snapshots")
	fmt.Fprintln(w, "─────────────────")

	today, err := filterSnapshots(snapshots, "", true, "")
	if err != nil {
		return err
	}
	if len(today) == 0 {
		fmt.Fprintln(w, "No snapshots today")
		return nil
	}
	fmt.Fprintf(w, "Found %d snapshot(s):\n\n", len(today))
	renderSnapshotTable(w, today)
	return nil
}
