// SPDX-License-Identifier: MPL-2.0

// Package customize runs the image customization workflow: allocate a
// session-private work area, resolve the runtime package, mount the
// image, apply the plan's modifications, and dismount committing or
// discarding. Every failure path converges on the same teardown, so a
// session always ends dismounted and cleaned up with the original error
// re-surfaced.
package customize
