// SPDX-License-Identifier: MPL-2.0

package imageservice

import "context"

type (
	// Servicer mounts and dismounts offline images.
	Servicer interface {
		// Mount makes the image's filesystem available under mountDir.
		Mount(ctx context.Context, imagePath string, index int, mountDir string) error

		// Dismount detaches the image, committing the mounted changes
		// into the image file when commit is true and discarding them
		// otherwise.
		Dismount(ctx context.Context, mountDir string, commit bool) error

		// DismountDiscardForced detaches a wedged mount without
		// committing, accepting data loss inside the mount. Used as the
		// escalation path when a regular discard dismount fails.
		DismountDiscardForced(ctx context.Context, mountDir string) error
	}

	// HiveEditor loads, edits, and unloads an offline configuration hive.
	// Loading a hive is exclusive per hive file at the OS level; callers
	// serialize Load/Unload pairs for the same path.
	HiveEditor interface {
		LoadHive(ctx context.Context, hivePath, mountKey string) error
		Edit(ctx context.Context, mountKey, keyPath, name, value string) error
		UnloadHive(ctx context.Context, mountKey string) error
	}
)
