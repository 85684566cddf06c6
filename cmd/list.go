package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pders01/savepoint/internal/models"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	listTag   string
	listToday bool
	listSince string
	listJSON  bool
	listToon  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all snapshots",
	Long: `List all snapshots, newest first, with optional filtering.

Examples:
  savepoint list
  savepoint list --tag boss
  savepoint list --today
  savepoint list --since 2025-10-01
  savepoint list --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
	listCmd.Flags().BoolVar(&listToday, "today", false, "Show only today's snapshots")
	listCmd.Flags().StringVar(&listSince, "since", "", "Show snapshots since date (YYYY-MM-DD)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listToon, "toon", false, "Output in LLM-friendly toon format")
}

// snapshotRow is the serialized form of a snapshot for --json and --toon
type snapshotRow struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Tags      []string  `json:"tags"`
	Note      string    `json:"note,omitempty"`
	Files     int       `json:"files"`
	SizeBytes int64     `json:"size_bytes"`
}

func toRow(s models.Snapshot) snapshotRow {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return snapshotRow{
		ID:        s.ID,
		CreatedAt: s.CreatedAt(),
		Tags:      tags,
		Note:      s.Metadata.Note,
		Files:     s.Metadata.FileCount,
		SizeBytes: s.Metadata.SizeBytes,
	}
}

// filterSnapshots applies the list filters; since is a YYYY-MM-DD date or empty
func filterSnapshots(snapshots []models.Snapshot, tag string, today bool, since string) ([]models.Snapshot, error) {
	var sinceDate time.Time
	if since != "" {
		d, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --since date format (use YYYY-MM-DD): %w", err)
		}
		sinceDate = d
	}
	todayStr := time.Now().Format("2006-01-02")

	return lo.Filter(snapshots, func(s models.Snapshot, _ int) bool {
		if tag != "" && !s.HasTag(tag) {
			return false
		}
		if today && s.CreatedAt().Format("2006-01-02") != todayStr {
			return false
		}
		if !sinceDate.IsZero() && s.CreatedAt().Before(sinceDate) {
			return false
		}
		return true
	}), nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := a.snapshots.List()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(all) == 0 {
		fmt.Println("No snapshots found")
		return nil
	}

	snapshots, err := filterSnapshots(all, listTag, listToday, listSince)
	if err != nil {
		return err
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots match the filter criteria")
		return nil
	}

	if done, err := printEncoded(lo.Map(snapshots, func(s models.Snapshot, _ int) snapshotRow {
		return toRow(s)
	}), listJSON, listToon); done {
		return err
	}

	fmt.Printf("Found %d snapshot(s):\n\n", len(snapshots))
	renderSnapshotTable(os.Stdout, snapshots)
	return nil
}

func renderSnapshotTable(w io.Writer, snapshots []models.Snapshot) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeader([]string{"ID", "Tags", "Files", "Size", "Note"})

	for _, s := range snapshots {
		table.Append([]string{
			s.ID,
			strings.Join(s.Tags, ", "),
			strconv.Itoa(s.Metadata.FileCount),
			formatBytes(s.Metadata.SizeBytes),
			truncate(s.Metadata.Note, 60),
		})
	}

	table.Render()
}
