package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	saveTags   []string
	saveSource string
)

var saveCmd = &cobra.Command{
	Use:   "save [note]",
	Short: "Create a new snapshot of the save directory",
	Long: `Copy the whole save directory into a new immutable snapshot.

Snapshot ids are timestamps: YYYY-MM-DDTHH-MM-SS, with a -NNN suffix when
several snapshots are taken within one second.

Without --tag the snapshot gets the last tag you used, if it still exists.

Examples:
  savepoint save "Reached Theseus with shield" --tag boss
  savepoint save --tag run-12 --tag spear
  savepoint save --source ~/other/saves`,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().StringSliceVar(&saveTags, "tag", []string{}, "Tag the snapshot (repeatable)")
	saveCmd.Flags().StringVar(&saveSource, "source", "", "Directory to snapshot (default paths.save_dir)")
}

func runSave(cmd *cobra.Command, args []string) error {
	source := saveSource
	if source == "" {
		dir, err := requireSaveDir()
		if err != nil {
			return err
		}
		source = dir
	}
	note := strings.TrimSpace(strings.Join(args, " "))

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tags := saveTags
	if len(tags) == 0 {
		if def, ok := a.tags.DefaultTag(); ok {
			tags = []string{def}
		}
	}

	fmt.Printf("Snapshotting %s...\n", source)
	id, err := a.snapshots.Save(source, tags, note)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	if len(tags) > 0 {
		if err := a.prefs.SetLastUsedTag(tags[0]); err != nil {
			logger.Warnf("failed to remember tag: %v", err)
		}
	}

	snap, err := a.snapshots.Get(id)
	if err != nil {
		return err
	}

	fmt.Printf("\n✓ Snapshot created: %s\n", id)
	fmt.Printf("  Files: %d (%s)\n", snap.Metadata.FileCount, formatBytes(snap.Metadata.SizeBytes))
	if len(snap.Tags) > 0 {
		fmt.Printf("  Tags:  %s\n", strings.Join(snap.Tags, ", "))
	}
	if note != "" {
		fmt.Printf("  Note:  %s\n", note)
	}

	return nil
}
