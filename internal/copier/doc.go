// SPDX-License-Identifier: MPL-2.0

// Package copier copies file trees into mounted images using a bounded
// worker pool. Individual file failures are logged and excluded from the
// result rather than failing the batch; callers that need all-or-nothing
// semantics compare the result count against the source enumeration.
package copier
