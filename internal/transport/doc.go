// SPDX-License-Identifier: MPL-2.0

// Package transport downloads runtime package artifacts over HTTPS.
// Downloads stream into a temp file next to the destination and are moved
// into place with an atomic rename, so consumers never observe a partial
// file. TLS 1.2 is the minimum accepted protocol version.
package transport
