package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pders01/savepoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	statsJSON bool
	statsToon bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show snapshot statistics",
	Long: `Display statistics about your snapshots including:
  - Total snapshot count and disk usage
  - Tag usage
  - Timeline distribution

Examples:
  savepoint stats
  savepoint stats --json
  savepoint stats --toon`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().BoolVar(&statsToon, "toon", false, "Output in LLM-friendly toon format")
}

type snapshotStats struct {
	TotalSnapshots int              `json:"total_snapshots"`
	TotalBytes     int64            `json:"total_bytes"`
	TotalFiles     int              `json:"total_files"`
	Untagged       int              `json:"untagged"`
	ByTag          map[string]int   `json:"by_tag"`
	ByDate         map[string]int   `json:"by_date"`
	OldestSnapshot *time.Time       `json:"oldest_snapshot,omitempty"`
	NewestSnapshot *time.Time       `json:"newest_snapshot,omitempty"`
	TopTags        []models.TagInfo `json:"top_tags"`
	DailyActivity  []dailyActivity  `json:"daily_activity"`
}

type dailyActivity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

func collectStats(snapshots []models.Snapshot, tags []models.TagInfo) *snapshotStats {
	stats := &snapshotStats{
		TotalSnapshots: len(snapshots),
		ByTag:          make(map[string]int),
		ByDate:         make(map[string]int),
		TopTags:        []models.TagInfo{},
		DailyActivity:  []dailyActivity{},
	}

	for _, s := range snapshots {
		created := s.CreatedAt()
		if stats.OldestSnapshot == nil || created.Before(*stats.OldestSnapshot) {
			stats.OldestSnapshot = &created
		}
		if stats.NewestSnapshot == nil || created.After(*stats.NewestSnapshot) {
			stats.NewestSnapshot = &created
		}

		stats.TotalBytes += s.Metadata.SizeBytes
		stats.TotalFiles += s.Metadata.FileCount
		if len(s.Tags) == 0 {
			stats.Untagged++
		}
		stats.ByDate[created.Format("2006-01-02")]++
	}

	for _, t := range tags {
		stats.ByTag[t.Tag] = t.Count
		if t.Count > 0 {
			stats.TopTags = append(stats.TopTags, t)
		}
	}
	sort.SliceStable(stats.TopTags, func(i, j int) bool {
		return stats.TopTags[i].Count > stats.TopTags[j].Count
	})

	for date, count := range stats.ByDate {
		stats.DailyActivity = append(stats.DailyActivity, dailyActivity{Date: date, Count: count})
	}
	sort.Slice(stats.DailyActivity, func(i, j int) bool {
		return stats.DailyActivity[i].Date > stats.DailyActivity[j].Date
	})

	return stats
}

func runStats(cmd *cobra.Command, args []string) error {
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

	tags, err := a.tags.ListTags()
	if err != nil {
		return err
	}

	stats := collectStats(snapshots, tags)

	if done, err := printEncoded(stats, statsJSON, statsToon); done {
		return err
	}

	fmt.Println("Snapshot Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	printStats(os.Stdout, stats)
	return nil
}

// printStats writes the human-readable summary of stats to w
func printStats(w io.Writer, stats *snapshotStats) {
	fmt.Fprintf(w, "Total Snapshots: %d\n", stats.TotalSnapshots)
	fmt.Fprintf(w, "Disk Usage:      %s in %d files\n", formatBytes(stats.TotalBytes), stats.TotalFiles)
	if stats.OldestSnapshot != nil && stats.NewestSnapshot != nil {
		fmt.Fprintf(w, "Date Range:      %s to %s\n",
			stats.OldestSnapshot.Format("2006-01-02"),
			stats.NewestSnapshot.Format("2006-01-02"))
	}
	if stats.Untagged > 0 {
		fmt.Fprintf(w, "Untagged:        %d\n", stats.Untagged)
	}
	fmt.Fprintln(w)

	if len(stats.TopTags) > 0 {
		fmt.Fprintln(w, "Top Tags:")
		limit := min(10, len(stats.TopTags))
		for _, ts := range stats.TopTags[:limit] {
			fmt.Fprintf(w, "  %-20s %3d\n", ts.Tag, ts.Count)
		}
		fmt.Fprintln(w)
	}

	if len(stats.DailyActivity) > 0 {
		fmt.Fprintln(w, "Recent Activity:")
		limit := min(7, len(stats.DailyActivity))
		for _, da := range stats.DailyActivity[:limit] {
			bar := strings.Repeat("█", min(da.Count, 20))
			fmt.Fprintf(w, "  %s  %3d  %s\n", da.Date, da.Count, bar)
		}
	}
}
