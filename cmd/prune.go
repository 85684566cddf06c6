package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/pders01/savepoint/internal/config"
	"github.com/pders01/savepoint/internal/models"
	"github.com/pders01/savepoint/internal/oplog"
	"github.com/spf13/cobra"
)

var (
	pruneDryRun    bool
	pruneForce     bool
	pruneEmptyTags bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old snapshots based on retention policy",
	Long: `Remove snapshots older than the retention period.

The retention policy is configured in ~/.config/savepoint/config.toml:
  [retention]
  days = 90
  keep_last = 10
  preserve_tags = ["important"]

The newest keep_last snapshots and snapshots with preserve tags are never
pruned.

Example:
  savepoint prune                       # Show what would be pruned
  savepoint prune --force               # Actually prune snapshots
  savepoint prune --force --empty-tags  # Also drop tags without snapshots`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", true, "Show what would be pruned without deleting")
	pruneCmd.Flags().BoolVar(&pruneForce, "force", false, "Actually delete snapshots (overrides dry-run)")
	pruneCmd.Flags().BoolVar(&pruneEmptyTags, "empty-tags", false, "Also remove tags that have no snapshots")
}

type pruneCandidate struct {
	Snapshot  models.Snapshot
	Age       time.Duration
	Preserved bool
	Reason    string
}

// planPrune sorts snapshots (newest first) into ones to delete and ones to keep
func planPrune(snapshots []models.Snapshot, now time.Time, retentionDays, keepLast int, preserve func([]string) bool) (toPrune, toPreserve []pruneCandidate) {
	cutoffDate := now.AddDate(0, 0, -retentionDays)

	for i, s := range snapshots {
		candidate := pruneCandidate{
			Snapshot: s,
			Age:      now.Sub(s.CreatedAt()),
		}

		switch {
		case i < keepLast:
			candidate.Preserved = true
			candidate.Reason = fmt.Sprintf("one of the newest %d", keepLast)
		case preserve(s.Tags):
			candidate.Preserved = true
			candidate.Reason = "has preserve tag"
		case s.CreatedAt().Before(cutoffDate):
			candidate.Reason = fmt.Sprintf("older than %d days", retentionDays)
		default:
			candidate.Preserved = true
			candidate.Reason = "within retention period"
		}

		if candidate.Preserved {
			toPreserve = append(toPreserve, candidate)
		} else {
			toPrune = append(toPrune, candidate)
		}
	}
	return toPrune, toPreserve
}

func runPrune(cmd *cobra.Command, args []string) error {
	retentionDays := config.GetRetentionDays()
	keepLast := config.GetKeepLast()
	preserveTags := config.GetPreserveTags()
	apply := pruneForce || !pruneDryRun

	fmt.Printf("Retention policy: %d days, keep last %d\n", retentionDays, keepLast)
	fmt.Printf("Preserve tags: %v\n", preserveTags)
	fmt.Printf("Cutoff date: %s\n\n", time.Now().AddDate(0, 0, -retentionDays).Format("2006-01-02"))

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snapshots, err := a.snapshots.List()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
	}

	toPrune, toPreserve := planPrune(snapshots, time.Now(), retentionDays, keepLast, config.ShouldPreserve)

	if len(snapshots) > 0 && len(toPrune) == 0 {
		fmt.Println("No snapshots to prune")
	}

	if len(toPrune) > 0 {
		fmt.Printf("Snapshots to prune (%d):\n\n", len(toPrune))
		for _, c := range toPrune {
			printCandidate(c)
		}

		if len(toPreserve) > 0 {
			fmt.Printf("Snapshots to preserve (%d):\n\n", len(toPreserve))
			for _, c := range toPreserve {
				printCandidate(c)
			}
		}
	}

	if !apply {
		if len(toPrune) > 0 || pruneEmptyTags {
			fmt.Println("\nThis is a dry run. Use --force to actually prune snapshots.")
		}
		return nil
	}

	if len(toPrune) > 0 {
		fmt.Println("Pruning snapshots...")
		pruned := 0
		for _, c := range toPrune {
			fmt.Printf("  Deleting %s...\n", c.Snapshot.ID)
			if err := a.snapshots.DeleteSnapshot(c.Snapshot.ID); err != nil {
				fmt.Printf("    Error: %v\n", err)
				continue
			}
			fmt.Printf("    ✓ Deleted\n")
			pruned++
		}
		fmt.Printf("\n✓ Pruned %d snapshot(s)\n", pruned)
		if err := a.oplog.Append(oplog.EventPrune, fmt.Sprintf("snapshots=%d", pruned)); err != nil {
			logger.Warnf("failed to write operation log: %v", err)
		}
	}

	if pruneEmptyTags {
		removed, err := a.tags.RemoveEmptyTags()
		if err != nil {
			return fmt.Errorf("failed to remove empty tags: %w", err)
		}
		if len(removed) == 0 {
			fmt.Println("No empty tags")
		} else {
			fmt.Printf("✓ Removed %d empty tag(s): %s\n", len(removed), strings.Join(removed, ", "))
		}
	}

	return nil
}

func printCandidate(c pruneCandidate) {
	fmt.Printf("  %s\n", c.Snapshot.ID)
	fmt.Printf("    Age:    %s\n", formatDuration(c.Age))
	fmt.Printf("    Reason: %s\n", c.Reason)
	if len(c.Snapshot.Tags) > 0 {
		fmt.Printf("    Tags:   %v\n", c.Snapshot.Tags)
	}
	fmt.Println()
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 0 {
		return "< 1 day"
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
