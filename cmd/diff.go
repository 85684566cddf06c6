package cmd

import (
	"fmt"

	"github.com/pders01/savepoint/internal/fsutil"
	"github.com/spf13/cobra"
)

var (
	diffJSON bool
	diffToon bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <id> [other-id]",
	Short: "Compare a snapshot with the save directory or another snapshot",
	Long: `Compare file contents of a snapshot with the live save directory, or with
a second snapshot. Files are compared by content hash.

Examples:
  savepoint diff 2025-11-14T09-30-00
  savepoint diff 2025-11-14T09-30-00 2025-11-14T10-05-12`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&diffToon, "toon", false, "Output in LLM-friendly toon format")
}

type snapshotDiff struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Diff fsutil.TreeDiff `json:"diff"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result := snapshotDiff{From: args[0]}
	var dir string
	if len(args) == 2 {
		if !a.snapshots.Exists(args[1]) {
			return fmt.Errorf("snapshot %s does not exist", args[1])
		}
		result.To = args[1]
		dir = a.snapshots.DataPath(args[1])
	} else {
		if dir, err = requireSaveDir(); err != nil {
			return err
		}
		result.To = dir
	}

	result.Diff, err = a.snapshots.Diff(args[0], dir)
	if err != nil {
		return fmt.Errorf("failed to compare: %w", err)
	}

	if done, err := printEncoded(result, diffJSON, diffToon); done {
		return err
	}

	fmt.Printf("%s → %s\n\n", result.From, result.To)
	if result.Diff.Empty() {
		fmt.Println("No differences")
		return nil
	}
	for _, p := range result.Diff.Added {
		fmt.Printf("  + %s\n", p)
	}
	for _, p := range result.Diff.Removed {
		fmt.Printf("  - %s\n", p)
	}
	for _, p := range result.Diff.Modified {
		fmt.Printf("  ~ %s\n", p)
	}
	fmt.Printf("\n%d added, %d removed, %d modified\n",
		len(result.Diff.Added), len(result.Diff.Removed), len(result.Diff.Modified))
	return nil
}
