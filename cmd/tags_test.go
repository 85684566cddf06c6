package cmd

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pders01/savepoint/internal/models"
)

func tagCounts(t *testing.T) map[string]int {
	t.Helper()
	a := openTestApp(t)
	defer a.Close()
	return tagCountsFrom(t, a)
}

func TestTagsCommand(t *testing.T) {
	setupCLI(t)

	createTestSnapshot(t, "one", []string{"temp1"})
	createTestSnapshot(t, "two", []string{"temp2"})

	steps := []struct {
		name  string
		arg   string
		flags func()
		want  map[string]int
	}{
		{
			name:  "create",
			arg:   "boss",
			flags: func() { tagsCreate = true },
			want:  map[string]int{"temp1": 1, "temp2": 1, "boss": 0},
		},
		{
			name:  "rename",
			arg:   "temp1",
			flags: func() { tagsRename = "main_run" },
			want:  map[string]int{"main_run": 1, "temp2": 1, "boss": 0},
		},
		{
			name:  "merge",
			arg:   "temp2",
			flags: func() { tagsMergeInto = "main_run" },
			want:  map[string]int{"main_run": 2, "boss": 0},
		},
		{
			name:  "delete",
			arg:   "boss",
			flags: func() { tagsDelete = true },
			want:  map[string]int{"main_run": 2},
		},
	}

	for _, step := range steps {
		resetFlags()
		step.flags()
		if err := runTags(nil, []string{step.arg}); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := tagCounts(t); !reflect.DeepEqual(got, step.want) {
			t.Errorf("%s: tags = %v, want %v", step.name, got, step.want)
		}
	}

	resetFlags()
	if err := runTags(nil, []string{}); err != nil {
		t.Errorf("listing tags failed: %v", err)
	}
	if err := runTags(nil, []string{"main_run"}); err != nil {
		t.Errorf("showing tag failed: %v", err)
	}
}

func TestTagsCommandErrors(t *testing.T) {
	setupCLI(t)
	createTestSnapshot(t, "one", []string{"a"})
	createTestSnapshot(t, "two", []string{"b"})

	tests := []struct {
		name   string
		args   []string
		flags  func()
		wantIs error
	}{
		{name: "two actions", args: []string{"a"}, flags: func() { tagsCreate = true; tagsDelete = true }},
		{name: "action without name", flags: func() { tagsDelete = true }},
		{name: "create existing", args: []string{"a"}, flags: func() { tagsCreate = true }, wantIs: models.ErrAlreadyExists},
		{name: "rename onto existing", args: []string{"a"}, flags: func() { tagsRename = "b" }, wantIs: models.ErrAlreadyExists},
		{name: "merge into itself", args: []string{"a"}, flags: func() { tagsMergeInto = "a" }, wantIs: models.ErrSameTag},
		{name: "delete unknown", args: []string{"nope"}, flags: func() { tagsDelete = true }, wantIs: models.ErrNotFound},
		{name: "show unknown", args: []string{"nope"}, flags: func() {}, wantIs: models.ErrTagNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			tt.flags()
			err := runTags(nil, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}
