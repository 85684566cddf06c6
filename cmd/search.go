package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pders01/savepoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	searchTag  string
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search snapshot notes and tags",
	Long: `Search through snapshot notes and tags by keyword.

Every query word scores 10 points per occurrence in the note and tags,
plus 30 points for each tag that contains it.

Example:
  savepoint search "before boss"
  savepoint search --tag run2 hydra`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchTag, "tag", "", "Only search snapshots with this tag")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

type searchResult struct {
	Snapshot snapshotRow `json:"snapshot"`
	Score    int         `json:"score"`
}

// searchSnapshots returns the snapshots matching query, best match first
func searchSnapshots(snapshots []models.Snapshot, query string) []searchResult {
	queryWords := strings.Fields(strings.ToLower(query))

	var results []searchResult
	for _, s := range snapshots {
		if score := calculateRelevance(queryWords, s); score > 0 {
			results = append(results, searchResult{Snapshot: toRow(s), Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func calculateRelevance(queryWords []string, s models.Snapshot) int {
	score := 0
	searchableText := strings.ToLower(s.Metadata.Note + " " + strings.Join(s.Tags, " "))

	for _, word := range queryWords {
		score += strings.Count(searchableText, word) * 10

		for _, tag := range s.Tags {
			if strings.Contains(strings.ToLower(tag), word) {
				score += 30
			}
		}
	}

	return score
}

func runSearch(cmd *cobra.Command, args []string) error {
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
		return nil
	}

	if searchTag != "" {
		snapshots, _ = filterSnapshots(snapshots, searchTag, false, "")
	}

	results := searchSnapshots(snapshots, args[0])
	if len(results) == 0 {
		fmt.Println("No snapshots match the search query")
		return nil
	}

	if done, err := printEncoded(results, searchJSON, false); done {
		return err
	}

	fmt.Printf("Found %d matching snapshot(s):\n\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %s [score: %d]\n", i+1, r.Snapshot.ID, r.Score)
		fmt.Printf("   Created: %s\n", r.Snapshot.CreatedAt.Format("2006-01-02 15:04"))
		if len(r.Snapshot.Tags) > 0 {
			fmt.Printf("   Tags:    %v\n", r.Snapshot.Tags)
		}
		if r.Snapshot.Note != "" {
			fmt.Printf("   Note:    %s\n", truncate(r.Snapshot.Note, 80))
		}
		fmt.Println()
	}

	return nil
}
