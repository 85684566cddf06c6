package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrExchangeUnsupported is returned by Exchange when the platform or
// filesystem cannot swap two directories atomically.
var ErrExchangeUnsupported = errors.New("atomic exchange not supported")

// StagingPath returns the sibling directory a replacement for target is
// assembled in. It lives next to target so the final rename stays on one
// filesystem.
func StagingPath(target string) string {
	return sibling(target, "savepoint-new")
}

// AsidePath returns where the previous content of target is parked when the
// swap falls back to two renames.
func AsidePath(target string) string {
	return sibling(target, "savepoint-old")
}

func sibling(target, suffix string) string {
	target = filepath.Clean(target)
	return filepath.Join(filepath.Dir(target), fmt.Sprintf(".%s.%s", filepath.Base(target), suffix))
}

// ReplaceDir puts newDir in place of target. target always names either the
// old or the new tree, except for the window between the two renames of the
// fallback path, which RecoverReplace repairs.
//
// On success the previous content, if there was any, is left at the returned
// path for the caller to remove. The swap has already happened at that point,
// so a failed cleanup does not undo it.
func ReplaceDir(newDir, target string) (string, error) {
	if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
		if err := Rename(newDir, target); err != nil {
			return "", fmt.Errorf("failed to move %s into place: %w", newDir, err)
		}
		return "", nil
	} else if err != nil {
		return "", err
	}

	err := Exchange(newDir, target)
	if err == nil {
		// newDir now holds the old tree
		return newDir, nil
	}
	if !errors.Is(err, ErrExchangeUnsupported) {
		return "", fmt.Errorf("failed to exchange %s and %s: %w", newDir, target, err)
	}

	aside := AsidePath(target)
	if err := RemoveAll(aside); err != nil {
		return "", fmt.Errorf("failed to clear %s: %w", aside, err)
	}
	if err := Rename(target, aside); err != nil {
		return "", fmt.Errorf("failed to move %s aside: %w", target, err)
	}
	if err := Rename(newDir, target); err != nil {
		if rbErr := Rename(aside, target); rbErr != nil {
			return "", fmt.Errorf("failed to move %s into place: %w (rollback failed: %v)", newDir, err, rbErr)
		}
		return "", fmt.Errorf("failed to move %s into place: %w", newDir, err)
	}
	return aside, nil
}

// RecoverReplace repairs the state an interrupted ReplaceDir may have left
// around target and removes leftover staging and aside directories. It
// reports whether target had to be moved back.
func RecoverReplace(target string) (bool, error) {
	staging, aside := StagingPath(target), AsidePath(target)

	restored := false
	if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Lstat(aside); err == nil {
			if err := Rename(aside, target); err != nil {
				return false, fmt.Errorf("failed to move %s back: %w", aside, err)
			}
			restored = true
		}
	}

	for _, leftover := range []string{staging, aside} {
		if err := RemoveAll(leftover); err != nil {
			return restored, fmt.Errorf("failed to remove %s: %w", leftover, err)
		}
	}
	return restored, nil
}
