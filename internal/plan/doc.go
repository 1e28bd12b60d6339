// SPDX-License-Identifier: MPL-2.0

// Package plan loads and validates customization plans. A plan is a CUE
// file describing one image customization: the target image, the runtime
// package to inject, tree and file copies into the mounted image, hive
// edits, and startup commands. Validation happens against an embedded
// CUE schema before any Go-side code sees the values.
package plan
