package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestCopyTreeIsExact(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	writeTree(t, src, map[string]string{
		"Profile1.sav":        "profile one",
		"Profile2.sav":        "profile two",
		"nested/deep/a.txt":   "deep",
		"nested/empty-ish.sv": "",
	})
	if err := os.MkdirAll(filepath.Join(src, "emptydir"), 0755); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "dst")
	stats, err := CopyTree(src, dst, 2)
	if err != nil {
		t.Fatalf("CopyTree failed: %v", err)
	}

	if stats.Files != 4 {
		t.Errorf("expected 4 files, got %d", stats.Files)
	}
	if got := readFile(t, filepath.Join(dst, "nested/deep/a.txt")); got != "deep" {
		t.Errorf("unexpected content %q", got)
	}
	if info, err := os.Stat(filepath.Join(dst, "emptydir")); err != nil || !info.IsDir() {
		t.Errorf("empty directory not copied: %v", err)
	}

	srcHash, _, err := HashTree(src)
	if err != nil {
		t.Fatal(err)
	}
	dstHash, _, err := HashTree(dst)
	if err != nil {
		t.Fatal(err)
	}
	if srcHash != dstHash {
		t.Errorf("tree hash mismatch: %s != %s", srcHash, dstHash)
	}
}

func TestCopyTreeKeepsDirectoryModes(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	writeTree(t, src, map[string]string{
		"ro/locked/save.sav": "locked",
		"rw/open.sav":        "open",
	})
	modes := map[string]os.FileMode{"ro": 0o555, "ro/locked": 0o500, "rw": 0o750}
	for _, dir := range []string{"ro/locked", "ro", "rw"} {
		if err := os.Chmod(filepath.Join(src, dir), modes[dir]); err != nil {
			t.Fatal(err)
		}
	}
	dst := filepath.Join(t.TempDir(), "dst")
	t.Cleanup(func() {
		RemoveAll(src)
		RemoveAll(dst)
	})

	if _, err := CopyTree(src, dst, 2); err != nil {
		t.Fatalf("CopyTree failed: %v", err)
	}

	for dir, want := range modes {
		info, err := os.Stat(filepath.Join(dst, dir))
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s: mode %v, want %v", dir, got, want)
		}
	}
	if got := readFile(t, filepath.Join(dst, "ro/locked/save.sav")); got != "locked" {
		t.Errorf("unexpected content %q", got)
	}

	if err := RemoveAll(dst); err != nil {
		t.Fatalf("RemoveAll of read-only copy failed: %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("copy still present: %v", err)
	}
}

func TestCopyTreeMissingSource(t *testing.T) {
	_, err := CopyTree(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "dst"), 1)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestCompareHashes(t *testing.T) {
	before := map[string]string{"a": "1", "b": "2", "c": "3"}
	after := map[string]string{"a": "1", "b": "20", "d": "4"}

	diff := CompareHashes(before, after)
	if len(diff.Added) != 1 || diff.Added[0] != "d" {
		t.Errorf("unexpected added: %v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0] != "c" {
		t.Errorf("unexpected removed: %v", diff.Removed)
	}
	if len(diff.Modified) != 1 || diff.Modified[0] != "b" {
		t.Errorf("unexpected modified: %v", diff.Modified)
	}
	if CompareHashes(before, before).Empty() != true {
		t.Error("identical trees should produce an empty diff")
	}
}

func TestReplaceDirFresh(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, "Hades")
	staging := StagingPath(target)
	writeTree(t, staging, map[string]string{"save.sav": "new"})

	old, err := ReplaceDir(staging, target)
	if err != nil {
		t.Fatalf("ReplaceDir failed: %v", err)
	}
	if old != "" {
		t.Errorf("expected no old dir, got %s", old)
	}
	if got := readFile(t, filepath.Join(target, "save.sav")); got != "new" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestReplaceDirExistingTarget(t *testing.T) {
	for _, fallback := range []bool{false, true} {
		name := "exchange"
		if fallback {
			name = "fallback"
		}
		t.Run(name, func(t *testing.T) {
			if fallback {
				orig := Exchange
				defer func() { Exchange = orig }()
				Exchange = func(a, b string) error { return ErrExchangeUnsupported }
			}

			parent := t.TempDir()
			target := filepath.Join(parent, "Hades")
			writeTree(t, target, map[string]string{"save.sav": "old"})
			staging := StagingPath(target)
			writeTree(t, staging, map[string]string{"save.sav": "new"})

			old, err := ReplaceDir(staging, target)
			if err != nil {
				t.Fatalf("ReplaceDir failed: %v", err)
			}
			if got := readFile(t, filepath.Join(target, "save.sav")); got != "new" {
				t.Errorf("unexpected live content %q", got)
			}
			if got := readFile(t, filepath.Join(old, "save.sav")); got != "old" {
				t.Errorf("unexpected old content %q", got)
			}
		})
	}
}

func TestReplaceDirRollsBackWhenSecondRenameFails(t *testing.T) {
	origExchange, origRename := Exchange, Rename
	defer func() { Exchange, Rename = origExchange, origRename }()

	parent := t.TempDir()
	target := filepath.Join(parent, "Hades")
	writeTree(t, target, map[string]string{"save.sav": "old"})
	staging := StagingPath(target)
	writeTree(t, staging, map[string]string{"save.sav": "new"})

	Exchange = func(a, b string) error { return ErrExchangeUnsupported }
	Rename = func(oldPath, newPath string) error {
		if oldPath == staging {
			return errors.New("disk on fire")
		}
		return origRename(oldPath, newPath)
	}

	if _, err := ReplaceDir(staging, target); err == nil {
		t.Fatal("expected error")
	}
	if got := readFile(t, filepath.Join(target, "save.sav")); got != "old" {
		t.Errorf("live dir should be untouched, got %q", got)
	}
}

func TestRecoverReplace(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, "Hades")

	// interrupted between the two fallback renames
	writeTree(t, AsidePath(target), map[string]string{"save.sav": "old"})
	writeTree(t, StagingPath(target), map[string]string{"save.sav": "new"})

	restored, err := RecoverReplace(target)
	if err != nil {
		t.Fatalf("RecoverReplace failed: %v", err)
	}
	if !restored {
		t.Error("expected target to be restored")
	}
	if got := readFile(t, filepath.Join(target, "save.sav")); got != "old" {
		t.Errorf("unexpected content %q", got)
	}
	for _, p := range []string{AsidePath(target), StagingPath(target)} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("leftover %s not removed", p)
		}
	}

	restored, err = RecoverReplace(target)
	if err != nil || restored {
		t.Errorf("second recovery should be a no-op, got %v %v", restored, err)
	}
}
