package cmd

import (
	"fmt"
	"strings"

	"github.com/pders01/savepoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	metaJSON bool
	metaToon bool
)

var metaCmd = &cobra.Command{
	Use:   "meta <id>",
	Short: "Show metadata for a snapshot",
	Long: `Display the metadata (meta.json) and current tags of a snapshot.

Example:
  savepoint meta 2025-11-14T09-30-00`,
	Args: cobra.ExactArgs(1),
	RunE: runMeta,
}

func init() {
	rootCmd.AddCommand(metaCmd)

	metaCmd.Flags().BoolVar(&metaJSON, "json", false, "Output as JSON")
	metaCmd.Flags().BoolVar(&metaToon, "toon", false, "Output in LLM-friendly toon format")
}

// metaOutput is meta.json plus the tags the index holds for the snapshot
type metaOutput struct {
	models.Metadata
	Tags []string `json:"tags"`
}

func runMeta(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.snapshots.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	metadata := snap.Metadata

	if done, err := printEncoded(metaOutput{Metadata: *metadata, Tags: snap.Tags}, metaJSON, metaToon); done {
		return err
	}

	fmt.Printf("Snapshot: %s\n\n", snap.ID)
	fmt.Printf("Created:       %s\n", metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Source:        %s\n", metadata.SourceDir)
	fmt.Printf("Files:         %d (%s)\n", metadata.FileCount, formatBytes(metadata.SizeBytes))
	fmt.Printf("Schema:        v%d\n", metadata.SchemaVersion)

	if len(snap.Tags) > 0 {
		fmt.Printf("Tags:          %s\n", strings.Join(snap.Tags, ", "))
	}

	if metadata.ContentHash != "" {
		fmt.Printf("Content Hash:  %s\n", metadata.ContentHash)
	}

	if metadata.Note != "" {
		fmt.Printf("\nNote:\n%s\n", metadata.Note)
	}

	return nil
}
