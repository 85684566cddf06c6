package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkers is used when CopyTree is given a non-positive worker count
const DefaultWorkers = 4

// Stats summarizes a copied or hashed tree
type Stats struct {
	Files int
	Bytes int64
}

// CopyTree copies the directory tree at src into dst, which must not exist.
// Regular files are copied by a bounded pool of workers and synced before
// CopyTree returns; symlinks are recreated as links. Directory modes are
// applied once all files are in place. On error dst may be
// partially written and the caller is responsible for removing it.
func CopyTree(src, dst string, workers int) (Stats, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	info, err := os.Stat(src)
	if err != nil {
		return Stats{}, err
	}
	if !info.IsDir() {
		return Stats{}, fmt.Errorf("%s is not a directory", src)
	}

	type dirMode struct {
		path string
		mode fs.FileMode
	}
	var dirs []dirMode
	var files, bytes atomic.Int64
	p := pool.New().WithErrors().WithMaxGoroutines(workers)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			dirs = append(dirs, dirMode{target, info.Mode().Perm()})
			// owner must be able to write into it while copying
			return MkdirAll(target, info.Mode().Perm()|0o700)

		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)

		case d.Type().IsRegular():
			p.Go(func() error {
				n, err := copyFile(path, target)
				if err != nil {
					return fmt.Errorf("failed to copy %s: %w", rel, err)
				}
				files.Add(1)
				bytes.Add(n)
				return nil
			})
			return nil

		default:
			return fmt.Errorf("unsupported file type at %s: %s", rel, d.Type())
		}
	})

	poolErr := p.Wait()
	if walkErr != nil {
		return Stats{}, walkErr
	}
	if poolErr != nil {
		return Stats{}, poolErr
	}

	// walk order is parents first, so children are restricted before their parents
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i].path, dirs[i].mode); err != nil {
			return Stats{}, err
		}
	}

	return Stats{Files: int(files.Load()), Bytes: bytes.Load()}, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return n, err
	}
	if err := out.Close(); err != nil {
		return n, err
	}

	return n, os.Chtimes(dst, info.ModTime(), info.ModTime())
}
