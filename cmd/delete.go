package cmd

import (
	"errors"
	"fmt"

	"github.com/pders01/savepoint/internal/models"
	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a snapshot",
	Long: `Delete a snapshot and remove it from all of its tags.

Tags left without snapshots are kept; remove them with prune --empty-tags.

Example:
  savepoint delete 2025-11-14T09-30-00 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// a snapshot with broken metadata can still be deleted, just without its note
	snap, err := a.snapshots.Get(id)
	if err != nil && !errors.Is(err, models.ErrCorruptMetadata) {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if !deleteYes {
		question := fmt.Sprintf("Delete snapshot %s?", id)
		if snap.Metadata != nil && snap.Metadata.Note != "" {
			question = fmt.Sprintf("Delete snapshot %s (%s)?", id, truncate(snap.Metadata.Note, 40))
		}
		ok, err := confirm(question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := a.snapshots.DeleteSnapshot(id); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	fmt.Printf("✓ Deleted %s\n", id)
	return nil
}
