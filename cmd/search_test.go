package cmd

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pders01/savepoint/internal/models"
)

func withNote(s models.Snapshot, note string) models.Snapshot {
	s.Metadata.Note = note
	return s
}

func TestSearchSnapshots(t *testing.T) {
	now := time.Now()
	snapshots := []models.Snapshot{
		withNote(testSnapshot("c", now, "boss"), "before boss fight"),
		withNote(testSnapshot("b", now), "hydra down"),
		withNote(testSnapshot("a", now, "run-12"), "Boss rush"),
	}

	tests := []struct {
		query string
		want  []searchResult
	}{
		{
			query: "boss",
			want: []searchResult{
				{Snapshot: toRow(snapshots[0]), Score: 50},
				{Snapshot: toRow(snapshots[2]), Score: 10},
			},
		},
		{
			query: "HYDRA",
			want:  []searchResult{{Snapshot: toRow(snapshots[1]), Score: 10}},
		},
		{query: "theseus"},
	}

	for _, tt := range tests {
		got := searchSnapshots(snapshots, tt.query)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("searchSnapshots(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestSearchCommand(t *testing.T) {
	setupCLI(t)

	if err := runSearch(nil, []string{"boss"}); err != nil {
		t.Fatalf("search with no snapshots failed: %v", err)
	}

	createTestSnapshot(t, "before boss", []string{"boss"})
	createTestSnapshot(t, "hydra", []string{"run-12"})

	searchTag = "run-12"
	if err := runSearch(nil, []string{"hydra"}); err != nil {
		t.Fatalf("search command failed: %v", err)
	}
}

func TestFindRelated(t *testing.T) {
	day := time.Date(2025, 11, 14, 9, 0, 0, 0, time.Local)
	target := testSnapshot("t", day, "boss", "run-12")
	snapshots := []models.Snapshot{
		target,
		testSnapshot("both", day.AddDate(0, 0, -1), "boss", "run-12"),
		testSnapshot("sameday", day.Add(time.Hour)),
		testSnapshot("one", day.Add(2*time.Hour), "boss"),
		testSnapshot("none", day.AddDate(0, 0, -5), "hydra"),
	}

	related := findRelated(target, snapshots)

	var ids []string
	var scores []int
	for _, r := range related {
		ids = append(ids, r.Snapshot.ID)
		scores = append(scores, r.Score)
	}
	if want := []string{"both", "one", "sameday"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("related = %v, want %v", ids, want)
	}
	if want := []int{20, 15, 5}; !reflect.DeepEqual(scores, want) {
		t.Errorf("scores = %v, want %v", scores, want)
	}
}

func TestCollectStats(t *testing.T) {
	day := time.Date(2025, 11, 14, 9, 0, 0, 0, time.Local)
	snapshots := []models.Snapshot{
		testSnapshot("b", day.Add(time.Hour), "boss"),
		testSnapshot("a", day.AddDate(0, 0, -1)),
	}
	snapshots[0].Metadata.SizeBytes = 100
	snapshots[1].Metadata.SizeBytes = 50
	tags := []models.TagInfo{{Tag: "empty", Count: 0}, {Tag: "boss", Count: 1}}

	stats := collectStats(snapshots, tags)

	if stats.TotalSnapshots != 2 || stats.TotalBytes != 150 || stats.Untagged != 1 {
		t.Errorf("totals = %d snapshots, %d bytes, %d untagged", stats.TotalSnapshots, stats.TotalBytes, stats.Untagged)
	}
	if !stats.OldestSnapshot.Equal(day.AddDate(0, 0, -1)) || !stats.NewestSnapshot.Equal(day.Add(time.Hour)) {
		t.Errorf("range = %v .. %v", stats.OldestSnapshot, stats.NewestSnapshot)
	}
	if want := []models.TagInfo{{Tag: "boss", Count: 1}}; !reflect.DeepEqual(stats.TopTags, want) {
		t.Errorf("top tags = %v, want %v", stats.TopTags, want)
	}
	if want := []dailyActivity{{Date: "2025-11-14", Count: 1}, {Date: "2025-11-13", Count: 1}}; !reflect.DeepEqual(stats.DailyActivity, want) {
		t.Errorf("daily activity = %v, want %v", stats.DailyActivity, want)
	}
}

func TestReportCommand(t *testing.T) {
	setupCLI(t)
	createTestSnapshot(t, "one", []string{"boss"})

	// the report must not depend on or disturb the list and stats flags
	listTag, listJSON, statsToon = "nomatch", true, true
	t.Cleanup(resetFlags)

	if err := runReport(nil, []string{"daily"}); err != nil {
		t.Fatalf("daily report failed: %v", err)
	}
	if listTag != "nomatch" || !listJSON || !statsToon {
		t.Errorf("report changed flags: tag=%q json=%v toon=%v", listTag, listJSON, statsToon)
	}
	if err := runReport(nil, []string{"weekly"}); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestWriteDailyReport(t *testing.T) {
	now := time.Now()
	snapshots := []models.Snapshot{
		withNote(testSnapshot("today-run", now, "boss"), "before boss fight"),
		testSnapshot("old-run", now.AddDate(0, 0, -5)),
	}
	tags := []models.TagInfo{{Tag: "boss", Count: 1}}

	var buf bytes.Buffer
	if err := writeDailyReport(&buf, snapshots, tags); err != nil {
		t.Fatalf("writeDailyReport failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Total Snapshots: 2", "Untagged:        1", "today-run", "Found 1 snapshot(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "old-run") {
		t.Errorf("report lists an older snapshot:\n%s", out)
	}

	buf.Reset()
	if err := writeDailyReport(&buf, nil, nil); err != nil {
		t.Fatalf("empty report failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No snapshots found") {
		t.Errorf("unexpected empty report:\n%s", buf.String())
	}
}
