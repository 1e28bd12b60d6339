// SPDX-License-Identifier: MPL-2.0

package artifactcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrIntegrity is the sentinel matched by errors.Is when a file's
// content hash does not match the expected hash.
var ErrIntegrity = errors.New("content hash mismatch")

// IntegrityError reports a hash verification failure, showing both
// values for debugging. It matches ErrIntegrity via errors.Is.
type IntegrityError struct {
	Path     string
	Expected string
	Got      string
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("hash verification failed for %s: expected %s, got %s",
		e.Path, e.Expected, e.Got)
}

// Is matches ErrIntegrity.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// computeFileHash returns the lowercase hex-encoded SHA-256 digest of the
// file at path, streaming so large artifacts are never fully in memory.
func computeFileHash(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyFile compares the file's content hash with expectedHash
// (case-insensitive). A mismatch returns an *IntegrityError.
func verifyFile(path, expectedHash string) error {
	got, err := computeFileHash(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, expectedHash) {
		return &IntegrityError{
			Path:     path,
			Expected: strings.ToLower(expectedHash),
			Got:      got,
		}
	}
	return nil
}

// isValidHexHash checks that s is a 64-character hex SHA-256 digest.
func isValidHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
