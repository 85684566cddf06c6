package cmd

import (
	"testing"
	"time"

	"github.com/pders01/savepoint/internal/models"
)

func testSnapshot(id string, created time.Time, tags ...string) models.Snapshot {
	return models.Snapshot{
		ID:       id,
		Metadata: &models.Metadata{SchemaVersion: 1, ID: id, CreatedAt: created},
		Tags:     tags,
	}
}

func TestFilterSnapshots(t *testing.T) {
	now := time.Now()
	snapshots := []models.Snapshot{
		testSnapshot("c", now, "boss"),
		testSnapshot("b", now.AddDate(0, 0, -3), "boss", "run-12"),
		testSnapshot("a", now.AddDate(0, -2, 0)),
	}

	tests := []struct {
		name    string
		tag     string
		today   bool
		since   string
		want    []string
		wantErr bool
	}{
		{name: "no filter", want: []string{"c", "b", "a"}},
		{name: "by tag", tag: "boss", want: []string{"c", "b"}},
		{name: "unknown tag", tag: "hydra", want: []string{}},
		{name: "today", today: true, want: []string{"c"}},
		{name: "since", since: now.AddDate(0, 0, -7).Format("2006-01-02"), want: []string{"c", "b"}},
		{name: "tag and since", tag: "run-12", since: now.AddDate(0, 0, -7).Format("2006-01-02"), want: []string{"b"}},
		{name: "bad date", since: "14.11.2025", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterSnapshots(snapshots, tt.tag, tt.today, tt.since)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d snapshots, want %d", len(got), len(tt.want))
			}
			for i, s := range got {
				if s.ID != tt.want[i] {
					t.Errorf("got[%d] = %s, want %s", i, s.ID, tt.want[i])
				}
			}
		})
	}
}

func TestListCommand(t *testing.T) {
	setupCLI(t)

	if err := runList(nil, []string{}); err != nil {
		t.Fatalf("list with no snapshots failed: %v", err)
	}

	createTestSnapshot(t, "first", []string{"boss"})
	createTestSnapshot(t, "second", []string{"run-12"})

	for _, flags := range []func(){
		func() {},
		func() { listTag = "boss" },
		func() { listJSON = true },
		func() { listToon = true },
	} {
		resetFlags()
		flags()
		if err := runList(nil, []string{}); err != nil {
			t.Fatalf("list command failed: %v", err)
		}
	}
}
