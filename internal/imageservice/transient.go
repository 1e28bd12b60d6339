// SPDX-License-Identifier: MPL-2.0

package imageservice

import (
	"context"
	"errors"
	"strings"
)

// IsTransientError reports whether err is a transient servicing failure
// that may succeed on retry. Servicing tools report busy conditions on
// stderr in free text, so the classification is a substring heuristic
// over the captured stderr; that heuristic lives here and nowhere else.
//
// Context cancellation and deadline errors are explicitly non-transient
// because retrying a cancelled operation is never useful.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	// The caller explicitly stopped the operation.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var (
		mountErr    *MountError
		dismountErr *DismountError
		hiveErr     *HiveError
		stderr      string
	)
	switch {
	case errors.As(err, &mountErr):
		stderr = mountErr.Stderr
	case errors.As(err, &dismountErr):
		stderr = dismountErr.Stderr
	case errors.As(err, &hiveErr):
		stderr = hiveErr.Stderr
	default:
		return false
	}

	text := strings.ToLower(stderr)

	// Busy conditions that clear once scanners or indexers release
	// their handles on the image or the mount directory.
	if strings.Contains(text, "file in use") ||
		strings.Contains(text, "sharing violation") ||
		strings.Contains(text, "device not ready") {
		return true
	}

	// Access denied from servicing tools is frequently a momentary
	// handle conflict rather than a real permissions problem.
	if strings.Contains(text, "access denied") ||
		strings.Contains(text, "access is denied") {
		return true
	}

	return false
}
