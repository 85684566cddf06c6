package cmd

import (
	"fmt"
	"os"

	"github.com/pders01/savepoint/internal/config"
	"github.com/pders01/savepoint/internal/fsutil"
	"github.com/spf13/cobra"
)

var openPath string

var openCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Copy a snapshot out for inspection",
	Long: `Copy the files of a snapshot into a separate directory so they can be
inspected or edited without touching the save directory or the snapshot.

Example:
  savepoint open 2025-11-14T09-30-00

This copies to ./snap-2025-11-14T09-30-00 by default.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().StringVar(&openPath, "path", "", "Target directory (default: ./snap-<id>)")
}

func runOpen(cmd *cobra.Command, args []string) error {
	id := args[0]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.snapshots.Exists(id) {
		return fmt.Errorf("snapshot %s does not exist", id)
	}

	target := openPath
	if target == "" {
		target = "snap-" + id
	}
	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%s already exists", target)
	}

	fmt.Printf("Copying %s to %s\n", id, target)
	stats, err := fsutil.CopyTree(a.snapshots.DataPath(id), target, config.GetCopyWorkers())
	if err != nil {
		fsutil.RemoveAll(target)
		return fmt.Errorf("failed to copy snapshot: %w", err)
	}

	fmt.Printf("\n✓ Copied %d file(s) (%s) to: %s\n", stats.Files, formatBytes(stats.Bytes), target)
	return nil
}
