// SPDX-License-Identifier: MPL-2.0

//go:build unix

package hostlock

import (
	"errors"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// Handle is a held lock. Release is idempotent.
type Handle struct {
	name   string
	file   *os.File
	logger *slog.Logger
}

// Name returns the lock name this handle holds.
func (h *Handle) Name() string { return h.name }

// Release unlocks the flock and closes the file descriptor. It must
// never fail past the caller: errors are logged and swallowed so teardown
// paths stay simple. Safe to call multiple times.
func (h *Handle) Release() {
	if h == nil || h.file == nil {
		return
	}
	// LOCK_UN before Close for explicitness; Close also releases the flock.
	if err := unix.Flock(int(h.file.Fd()), unix.LOCK_UN); err != nil {
		h.logger.Debug("flock unlock failed", "name", h.name, "error", err)
	}
	if err := h.file.Close(); err != nil {
		h.logger.Debug("lock file close failed", "name", h.name, "error", err)
	}
	h.file = nil
}

// tryFlock attempts a non-blocking exclusive flock. It reports whether
// the lock is now held; EWOULDBLOCK means another holder exists.
func tryFlock(f *os.File) (bool, error) {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return false, nil
	}
	return false, err
}
