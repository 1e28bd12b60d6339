// SPDX-License-Identifier: MPL-2.0

// Package artifactcache resolves versioned runtime packages to local
// files, downloading on miss and verifying content hashes on every hit.
//
// Layout under the cache root, for an artifact "agent" at version 7.3.4:
//
//	agent-7.3.4.tar.gz         the artifact itself
//	agent-7.3.4.tar.gz.sha256  hash sidecar (lowercase hex SHA-256)
//
// The sidecar memoizes the expensive content hash: it is trusted only
// while it is at least as new as the artifact, otherwise the hash is
// recomputed. Concurrent sessions filling the same (name, version) are
// serialized by a host-wide lock, so an artifact is downloaded at most
// once per host no matter how many sessions race for it.
package artifactcache
