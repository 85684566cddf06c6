package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyIndex bool

var verifyCmd = &cobra.Command{
	Use:   "verify [id]",
	Short: "Check snapshot content and index consistency",
	Long: `Recompute content hashes and compare them with the ones recorded at save
time. Without an id every snapshot is checked.

With --index the tag index is also checked against the snapshot directories.

Examples:
  savepoint verify
  savepoint verify 2025-11-14T09-30-00
  savepoint verify --index`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyIndex, "index", false, "Also check the tag index")
}

func runVerify(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var ids []string
	if len(args) == 1 {
		ids = args
	} else {
		snapshots, err := a.snapshots.List()
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}
		for _, s := range snapshots {
			ids = append(ids, s.ID)
		}
	}

	failed := 0
	for _, id := range ids {
		if err := a.snapshots.Verify(id); err != nil {
			fmt.Printf("  ✗ %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Printf("  ✓ %s\n", id)
	}

	if verifyIndex {
		problems, err := a.snapshots.Check()
		if err != nil {
			return fmt.Errorf("failed to check index: %w", err)
		}
		if len(problems) == 0 {
			fmt.Println("\n✓ Index is consistent")
		} else {
			fmt.Printf("\nIndex problems (%d):\n", len(problems))
			for _, p := range problems {
				fmt.Printf("  - %s\n", p)
			}
			failed += len(problems)
		}
	}

	if failed > 0 {
		return fmt.Errorf("verification failed: %d problem(s)", failed)
	}
	if len(ids) > 0 {
		fmt.Printf("\n✓ %d snapshot(s) verified\n", len(ids))
	}
	return nil
}
