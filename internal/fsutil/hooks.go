package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Hooks for filesystem mutations on the commit path.
// Tests override these to simulate failures and interrupted operations.
var (
	Rename    = os.Rename
	RemoveAll = removeAll
	MkdirAll  = os.MkdirAll
	Exchange  = exchange
)

// removeAll is os.RemoveAll that also clears trees holding read-only
// directories, as copies of such save dirs do
func removeAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}

	filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			if info, err := d.Info(); err == nil {
				os.Chmod(p, info.Mode().Perm()|0o700)
			}
		}
		return nil
	})
	return os.RemoveAll(path)
}
