// SPDX-License-Identifier: MPL-2.0

package customize

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WorkArea is a session-private scratch directory tree. Each session
// gets a fresh instance id, so concurrent sessions never share paths.
type WorkArea struct {
	// ID is the opaque per-session instance id.
	ID string
	// Root is the work area directory, removed on cleanup.
	Root string
	// MountDir is where the image's filesystem is mounted.
	MountDir string
	// StagingDir holds the runtime package before injection.
	StagingDir string

	retain bool
	logger *slog.Logger
}

// NewWorkArea allocates a work area under root, creating the mount and
// staging subdirectories.
func NewWorkArea(root string, logger *slog.Logger) (*WorkArea, error) {
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	wa := &WorkArea{
		ID:     id,
		Root:   filepath.Join(root, "session-"+id),
		logger: logger,
	}
	wa.MountDir = filepath.Join(wa.Root, "mount")
	wa.StagingDir = filepath.Join(wa.Root, "staging")

	for _, dir := range []string{wa.MountDir, wa.StagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating work area: %w", err)
		}
	}
	wa.logger.Debug("work area created", "id", id, "root", wa.Root)
	return wa, nil
}

// Retain marks the work area to survive cleanup for diagnostics.
func (wa *WorkArea) Retain() {
	wa.retain = true
}

// Remove deletes the work area unless retained. Removal failures are
// reported but safe to ignore; stale work areas can be collected out of
// band.
func (wa *WorkArea) Remove() error {
	if wa.retain {
		wa.logger.Info("work area retained for diagnostics", "root", wa.Root)
		return nil
	}
	if err := os.RemoveAll(wa.Root); err != nil {
		return fmt.Errorf("removing work area: %w", err)
	}
	wa.logger.Debug("work area removed", "id", wa.ID)
	return nil
}
