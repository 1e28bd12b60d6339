// SPDX-License-Identifier: MPL-2.0

// Package startupscript edits the startup shell script inside a mounted
// image. Edits go through a real shell parser rather than string
// concatenation, so appending a launch command is idempotent even when
// the existing script formats it differently.
package startupscript
