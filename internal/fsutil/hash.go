package fsutil

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/xxh3"
)

// HashFiles returns the xxh3-128 hash of every regular file and symlink under
// dir, keyed by slash-separated relative path. Symlinks hash their target.
func HashFiles(dir string) (map[string]string, Stats, error) {
	hashes := map[string]string{}
	var stats Stats

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.Type()&fs.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			sum := xxh3.Hash128([]byte("symlink:" + link)).Bytes()
			hashes[rel] = hex.EncodeToString(sum[:])
			return nil
		}

		sum, n, err := hashFile(path)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", rel, err)
		}
		hashes[rel] = sum
		stats.Files++
		stats.Bytes += n
		return nil
	})
	if err != nil {
		return nil, Stats{}, err
	}

	return hashes, stats, nil
}

// HashTree returns a single hash covering the paths and contents of all
// files under dir
func HashTree(dir string) (string, Stats, error) {
	hashes, stats, err := HashFiles(dir)
	if err != nil {
		return "", Stats{}, err
	}
	return CombineHashes(hashes), stats, nil
}

// CombineHashes folds per-file hashes into one tree hash, independent of map order
func CombineHashes(hashes map[string]string) string {
	paths := make([]string, 0, len(hashes))
	for p := range hashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := xxh3.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(hashes[p]))
		h.Write([]byte{'\n'})
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := xxh3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", n, err
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), n, nil
}

// TreeDiff lists relative paths that differ between two HashFiles results
type TreeDiff struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// Empty reports whether both trees were identical
func (d TreeDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// CompareHashes reports what changed going from before to after
func CompareHashes(before, after map[string]string) TreeDiff {
	diff := TreeDiff{}
	for p, h := range after {
		old, ok := before[p]
		switch {
		case !ok:
			diff.Added = append(diff.Added, p)
		case old != h:
			diff.Modified = append(diff.Modified, p)
		}
	}
	for p := range before {
		if _, ok := after[p]; !ok {
			diff.Removed = append(diff.Removed, p)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Modified)
	return diff
}
