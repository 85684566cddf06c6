package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pders01/savepoint/internal/models"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	relatedJSON bool
	relatedToon bool
)

var relatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "Find related snapshots",
	Long: `Find snapshots related to a given snapshot based on:
  - Shared tags (10 points each)
  - Taken on the same day (5 points)

Results are ranked by relevance.

Example:
  savepoint related 2025-11-14T09-30-00`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	rootCmd.AddCommand(relatedCmd)

	relatedCmd.Flags().BoolVar(&relatedJSON, "json", false, "Output as JSON")
	relatedCmd.Flags().BoolVar(&relatedToon, "toon", false, "Output in LLM-friendly toon format")
}

type relatedSnapshot struct {
	Snapshot snapshotRow `json:"snapshot"`
	Score    int         `json:"score"`
	Reason   string      `json:"reason"`
}

// findRelated ranks every other snapshot by how much it has in common with target
func findRelated(target models.Snapshot, snapshots []models.Snapshot) []relatedSnapshot {
	day := target.CreatedAt().Format("2006-01-02")

	var related []relatedSnapshot
	for _, s := range snapshots {
		if s.ID == target.ID {
			continue
		}

		score := 0
		var reasons []string

		if shared := lo.Intersect(target.Tags, s.Tags); len(shared) > 0 {
			score += len(shared) * 10
			reasons = append(reasons, fmt.Sprintf("shared tags: %s", strings.Join(shared, ", ")))
		}
		if s.CreatedAt().Format("2006-01-02") == day {
			score += 5
			reasons = append(reasons, "same day")
		}

		if score > 0 {
			related = append(related, relatedSnapshot{
				Snapshot: toRow(s),
				Score:    score,
				Reason:   strings.Join(reasons, "; "),
			})
		}
	}

	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Score > related[j].Score
	})
	return related
}

func runRelated(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := a.snapshots.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	snapshots, err := a.snapshots.List()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	related := findRelated(target, snapshots)
	if len(related) == 0 {
		fmt.Println("No related snapshots found")
		return nil
	}

	if done, err := printEncoded(related, relatedJSON, relatedToon); done {
		return err
	}

	fmt.Printf("Found %d related snapshot(s) for %s:\n\n", len(related), target.ID)
	for i, r := range related {
		fmt.Printf("%d. %s [score: %d]\n", i+1, r.Snapshot.ID, r.Score)
		fmt.Printf("   Relationship: %s\n", r.Reason)
		if r.Snapshot.Note != "" {
			fmt.Printf("   Note:         %s\n", truncate(r.Snapshot.Note, 60))
		}
		fmt.Println()
	}

	return nil
}
