// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package hostlock

import (
	"errors"
	"log/slog"
	"os"
)

// errFlockUnavailable is returned on platforms without flock(2). Callers
// must treat it as a hard error: without a host-wide lock, concurrent
// sessions cannot safely share the image-servicing facility.
var errFlockUnavailable = errors.New("flock not available on this platform")

// Handle is the non-flock stub. Release is a no-op.
type Handle struct {
	name   string
	file   *os.File
	logger *slog.Logger
}

// Name returns the lock name this handle holds.
func (h *Handle) Name() string { return h.name }

// Release is a no-op on platforms without flock.
func (h *Handle) Release() {}

// tryFlock always fails on platforms without flock(2).
func tryFlock(*os.File) (bool, error) {
	return false, errFlockUnavailable
}
