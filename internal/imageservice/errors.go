// SPDX-License-Identifier: MPL-2.0

package imageservice

import (
	"errors"
	"fmt"
)

var (
	// ErrMount is the sentinel for image mount failures.
	ErrMount = errors.New("image mount failed")

	// ErrDismount is the sentinel for image dismount failures.
	ErrDismount = errors.New("image dismount failed")

	// ErrHive is the sentinel for offline hive operation failures.
	ErrHive = errors.New("hive operation failed")
)

type (
	// MountError reports a failed mount attempt, carrying the servicing
	// tool's stderr for transient classification.
	MountError struct {
		ImagePath string
		Index     int
		MountDir  string
		Stderr    string
		Cause     error
	}

	// DismountError reports a failed dismount attempt.
	DismountError struct {
		MountDir string
		Commit   bool
		Stderr   string
		Cause    error
	}

	// HiveError reports a failed hive load, edit, or unload.
	HiveError struct {
		HivePath string
		Op       string
		Stderr   string
		Cause    error
	}
)

func (e *MountError) Error() string {
	return fmt.Sprintf("mounting %s (index %d) at %s: %v", e.ImagePath, e.Index, e.MountDir, e.Cause)
}

func (e *MountError) Unwrap() error { return e.Cause }

func (e *MountError) Is(target error) bool { return target == ErrMount }

func (e *DismountError) Error() string {
	verb := "discarding"
	if e.Commit {
		verb = "committing"
	}
	return fmt.Sprintf("dismounting %s (%s): %v", e.MountDir, verb, e.Cause)
}

func (e *DismountError) Unwrap() error { return e.Cause }

func (e *DismountError) Is(target error) bool { return target == ErrDismount }

func (e *HiveError) Error() string {
	return fmt.Sprintf("hive %s on %s: %v", e.Op, e.HivePath, e.Cause)
}

func (e *HiveError) Unwrap() error { return e.Cause }

func (e *HiveError) Is(target error) bool { return target == ErrHive }
