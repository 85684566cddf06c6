package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/pders01/savepoint/internal/index"
	bolt "go.etcd.io/bbolt"
)

// Env is a throwaway backup root and live save directory for tests
type Env struct {
	// Root is the backup root
	Root string
	// LiveDir is the game's save directory
	LiveDir string
	DB      *bolt.DB
	T       *testing.T
}

// NewEnv creates a backup root with an open index and an empty live save
// directory. Everything is removed when the test ends.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	base := t.TempDir()
	env := &Env{
		Root:    filepath.Join(base, "backups"),
		LiveDir: filepath.Join(base, "saves", "Hades"),
		T:       t,
	}

	if err := os.MkdirAll(env.Root, 0755); err != nil {
		t.Fatalf("failed to create backup root: %v", err)
	}
	if err := os.MkdirAll(env.LiveDir, 0755); err != nil {
		t.Fatalf("failed to create live dir: %v", err)
	}

	env.OpenDB()
	t.Cleanup(func() { env.CloseDB() })
	return env
}

// IndexPath returns the location of the index database
func (e *Env) IndexPath() string {
	return filepath.Join(e.Root, "index.db")
}

// OpenDB opens the index, closing a previously opened handle first
func (e *Env) OpenDB() {
	e.T.Helper()
	e.CloseDB()

	db, err := index.Open(e.IndexPath())
	if err != nil {
		e.T.Fatalf("failed to open index: %v", err)
	}
	e.DB = db
}

// CloseDB closes the index if it is open
func (e *Env) CloseDB() {
	if e.DB != nil {
		e.DB.Close()
		e.DB = nil
	}
}

// WriteSave replaces the content of the live directory with files
func (e *Env) WriteSave(files map[string]string) {
	e.T.Helper()
	if err := os.RemoveAll(e.LiveDir); err != nil {
		e.T.Fatalf("failed to clear live dir: %v", err)
	}
	if err := os.MkdirAll(e.LiveDir, 0755); err != nil {
		e.T.Fatalf("failed to create live dir: %v", err)
	}
	WriteTree(e.T, e.LiveDir, files)
}

// WriteTree creates files under root, keyed by slash-separated relative path
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

// ReadTree returns the content of every regular file under root, keyed by
// slash-separated relative path
func ReadTree(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read tree %s: %v", root, err)
	}
	return files
}
