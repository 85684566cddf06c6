package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	restoreTag    string
	restoreLatest bool
	restoreYes    bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore [id]",
	Short: "Replace the save directory with a snapshot",
	Long: `Restore the save directory from a snapshot.

The snapshot is copied next to the save directory first and then swapped
into place in one step, so an interrupted restore never leaves a mix of old
and new files. Quit the game before restoring.

Examples:
  savepoint restore 2025-11-14T09-30-00
  savepoint restore --tag boss      # newest snapshot tagged boss
  savepoint restore --latest --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVar(&restoreTag, "tag", "", "Restore the newest snapshot carrying this tag")
	restoreCmd.Flags().BoolVar(&restoreLatest, "latest", false, "Restore the newest snapshot")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Do not ask for confirmation")
}

func runRestore(cmd *cobra.Command, args []string) error {
	chosen := 0
	if len(args) == 1 {
		chosen++
	}
	if restoreTag != "" {
		chosen++
	}
	if restoreLatest {
		chosen++
	}
	if chosen != 1 {
		return fmt.Errorf("specify exactly one of <id>, --tag or --latest")
	}

	liveDir, err := requireSaveDir()
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	target := ""
	switch {
	case len(args) == 1:
		target = args[0]
	case restoreLatest:
		latest, err := a.snapshots.Latest()
		if err != nil {
			return fmt.Errorf("failed to find latest snapshot: %w", err)
		}
		target = latest.ID
	default:
		members, err := a.tags.Members(restoreTag)
		if err != nil {
			return err
		}
		if len(members) > 0 {
			target = members[0]
		}
	}

	if !restoreYes {
		what := target
		if what == "" {
			what = "tag " + restoreTag
		}
		ok, err := confirm(fmt.Sprintf("Replace %s with %s?", liveDir, what))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted")
			return nil
		}
	}

	if restoreTag != "" {
		err = a.snapshots.RestoreByTag(restoreTag)
	} else {
		err = a.snapshots.Restore(target)
	}
	if err != nil {
		return fmt.Errorf("failed to restore: %w", err)
	}

	if target != "" {
		fmt.Printf("✓ Restored %s into %s\n", target, liveDir)
	} else {
		fmt.Printf("✓ Restored newest %s snapshot into %s\n", restoreTag, liveDir)
	}
	return nil
}
