//go:build linux

package fsutil

import (
	"errors"

	"golang.org/x/sys/unix"
)

// exchange swaps two paths in a single renameat2(RENAME_EXCHANGE) call
func exchange(a, b string) error {
	err := unix.Renameat2(unix.AT_FDCWD, a, unix.AT_FDCWD, b, unix.RENAME_EXCHANGE)
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EOPNOTSUPP) {
		return ErrExchangeUnsupported
	}
	return err
}
