package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pders01/savepoint/internal/models"
	"github.com/pders01/savepoint/internal/testutil"
)

func TestRestoreCommand(t *testing.T) {
	env := setupCLI(t)

	first := createTestSnapshot(t, "before boss", []string{"boss"})
	original := testutil.ReadTree(t, env.saveDir)

	testutil.WriteTree(t, env.saveDir, map[string]string{"Profile1.sav": "run 2"})
	createTestSnapshot(t, "after boss", []string{"run-2"})
	changed := testutil.ReadTree(t, env.saveDir)

	tests := []struct {
		name  string
		args  []string
		flags func()
		want  map[string]string
	}{
		{name: "by id", args: []string{first}, flags: func() {}, want: original},
		{name: "latest", flags: func() { restoreLatest = true }, want: changed},
		{name: "by tag", flags: func() { restoreTag = "boss" }, want: original},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			restoreYes = true
			tt.flags()
			if err := runRestore(nil, tt.args); err != nil {
				t.Fatalf("restore failed: %v", err)
			}
			if got := testutil.ReadTree(t, env.saveDir); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("save dir = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRestoreCommandErrors(t *testing.T) {
	setupCLI(t)
	id := createTestSnapshot(t, "one", []string{"boss"})

	tests := []struct {
		name   string
		args   []string
		flags  func()
		wantIs error
	}{
		{name: "nothing selected", flags: func() {}},
		{name: "id and latest", args: []string{id}, flags: func() { restoreLatest = true }},
		{name: "unknown id", args: []string{"2001-01-01T00-00-00"}, flags: func() {}, wantIs: models.ErrNotFound},
		{name: "unknown tag", flags: func() { restoreTag = "hydra" }, wantIs: models.ErrTagNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			restoreYes = true
			tt.flags()
			err := runRestore(nil, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestRestoreDeclined(t *testing.T) {
	env := setupCLI(t)
	id := createTestSnapshot(t, "one", []string{"boss"})

	testutil.WriteTree(t, env.saveDir, map[string]string{"Profile1.sav": "keep me"})
	before := testutil.ReadTree(t, env.saveDir)

	old := confirmInput
	confirmInput = strings.NewReader("n\n")
	defer func() { confirmInput = old }()

	if err := runRestore(nil, []string{id}); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if got := testutil.ReadTree(t, env.saveDir); !reflect.DeepEqual(got, before) {
		t.Errorf("declined restore changed the save dir: %v", got)
	}
}

func TestDeleteCommand(t *testing.T) {
	setupCLI(t)
	first := createTestSnapshot(t, "one", []string{"boss"})
	second := createTestSnapshot(t, "two", []string{"boss"})

	old := confirmInput
	confirmInput = strings.NewReader("yes\n")
	defer func() { confirmInput = old }()

	if err := runDelete(nil, []string{first}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	a := openTestApp(t)
	members, err := a.tags.Members("boss")
	exists := a.snapshots.Exists(first)
	a.Close()
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if exists {
		t.Error("deleted snapshot still exists")
	}
	if !reflect.DeepEqual(members, []string{second}) {
		t.Errorf("boss members = %v, want [%s]", members, second)
	}

	resetFlags()
	deleteYes = true
	if err := runDelete(nil, []string{first}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("deleting twice: error = %v, want ErrNotFound", err)
	}
}

func TestDeleteCommandBrokenMetadata(t *testing.T) {
	setupCLI(t)

	tests := []struct {
		name    string
		corrupt func(path string) error
	}{
		{name: "missing", corrupt: os.Remove},
		{name: "unparsable", corrupt: func(path string) error { return os.WriteFile(path, []byte("{"), 0644) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := createTestSnapshot(t, "doomed", []string{"boss"})

			a := openTestApp(t)
			metaPath := filepath.Join(a.snapshots.Path(id), "meta.json")
			a.Close()
			if err := tt.corrupt(metaPath); err != nil {
				t.Fatal(err)
			}

			old := confirmInput
			confirmInput = strings.NewReader("y\n")
			defer func() { confirmInput = old }()

			resetFlags()
			if err := runDelete(nil, []string{id}); err != nil {
				t.Fatalf("delete failed: %v", err)
			}

			a = openTestApp(t)
			defer a.Close()
			if _, err := os.Stat(a.snapshots.Path(id)); !os.IsNotExist(err) {
				t.Errorf("snapshot directory still present: %v", err)
			}
			members, err := a.tags.Members("boss")
			if err != nil {
				t.Fatalf("Members: %v", err)
			}
			if len(members) != 0 {
				t.Errorf("boss still lists %v", members)
			}
			if problems, err := a.snapshots.Check(); err != nil || len(problems) > 0 {
				t.Errorf("store inconsistent: %v %v", problems, err)
			}
		})
	}
}
