// SPDX-License-Identifier: MPL-2.0

package artifactcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imgcraft-cli/internal/hostlock"

	"golang.org/x/mod/semver"
)

// ErrInvalidSpec is returned when an artifact spec has a missing or
// malformed field.
var ErrInvalidSpec = errors.New("invalid artifact spec")

// defaultLockTimeout bounds the wait for another session's in-flight
// fill of the same artifact. Fills are downloads, so the bound is
// generous.
const defaultLockTimeout = 15 * time.Minute

type (
	// Downloader fetches a URL into a destination path. Satisfied by
	// *transport.Client.
	Downloader interface {
		Download(ctx context.Context, url, destPath string) error
	}

	// Spec identifies one versioned artifact and its expected content.
	Spec struct {
		// Name is the artifact base name, e.g. "agent".
		Name string
		// Version is a semantic version, with or without "v" prefix.
		Version string
		// URL is the download source used on cache miss.
		URL string
		// SHA256 is the expected lowercase hex content hash.
		SHA256 string
		// Ext is the file extension including the dot, e.g. ".tar.gz".
		Ext string
	}

	// Cache resolves Specs to verified local files.
	Cache struct {
		root        string
		downloader  Downloader
		locks       *hostlock.Manager
		lockTimeout time.Duration
		logger      *slog.Logger
	}

	// Option configures a Cache during construction.
	Option func(*Cache)
)

// WithLockTimeout overrides the bound on waiting for a concurrent fill.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Cache) { c.lockTimeout = d }
}

// WithLogger sets the cache's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a Cache rooted at root. Artifacts fill via downloader;
// concurrent fills of the same (name, version) serialize on locks.
func New(root string, downloader Downloader, locks *hostlock.Manager, opts ...Option) *Cache {
	c := &Cache{
		root:        root,
		downloader:  downloader,
		locks:       locks,
		lockTimeout: defaultLockTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the local path of the artifact described by spec,
// downloading and verifying it on miss. A cached file is trusted only if
// its content hash matches spec.SHA256; on mismatch the stale artifact
// and sidecar are deleted and the artifact is re-downloaded. The whole
// operation holds a per-artifact host lock, so concurrent sessions never
// download the same artifact twice.
func (c *Cache) Resolve(ctx context.Context, spec Spec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return "", fmt.Errorf("creating cache root: %w", err)
	}

	path := c.artifactPath(spec)
	lockName := "cache-" + spec.Name + "-" + spec.Version

	var resolved string
	err := c.locks.With(ctx, lockName, c.lockTimeout, func(ctx context.Context) error {
		var err error
		resolved, err = c.resolveLocked(ctx, spec, path)
		return err
	})
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// resolveLocked runs with the per-artifact lock held.
func (c *Cache) resolveLocked(ctx context.Context, spec Spec, path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		hash, err := c.cachedHash(path)
		if err != nil {
			return "", err
		}
		if strings.EqualFold(hash, spec.SHA256) {
			c.logger.Debug("cache hit", "artifact", spec.Name, "version", spec.Version, "path", path)
			return path, nil
		}

		// Stale or corrupted: an IntegrityError here is local to the
		// cache entry, so it is handled as a miss rather than surfaced.
		c.logger.Warn("cached artifact failed verification, re-downloading",
			"artifact", spec.Name, "version", spec.Version,
			"expected", spec.SHA256, "got", hash)
		if err := c.invalidate(path); err != nil {
			return "", err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("statting cached artifact: %w", err)
	}

	return c.fill(ctx, spec, path)
}

// cachedHash returns the artifact's content hash, reusing the sidecar
// when it is at least as new as the artifact and recomputing (and
// rewriting the sidecar) otherwise.
func (c *Cache) cachedHash(path string) (string, error) {
	sidecar := sidecarPath(path)

	artInfo, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("statting artifact: %w", err)
	}
	scInfo, err := os.Stat(sidecar)
	if err == nil && !scInfo.ModTime().Before(artInfo.ModTime()) {
		data, readErr := os.ReadFile(sidecar)
		if readErr == nil {
			recorded := strings.TrimSpace(string(data))
			if isValidHexHash(recorded) {
				return recorded, nil
			}
		}
		// Unreadable or malformed sidecar falls through to recompute.
	}

	hash, err := computeFileHash(path)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(sidecar, []byte(hash+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing hash sidecar: %w", err)
	}
	return hash, nil
}

// fill downloads the artifact to a temp file, verifies it, and atomically
// places it into the cache together with its sidecar.
func (c *Cache) fill(ctx context.Context, spec Spec, path string) (string, error) {
	c.logger.Info("downloading artifact",
		"artifact", spec.Name, "version", spec.Version, "url", spec.URL)

	tmpPath := path + ".fill"
	if err := c.downloader.Download(ctx, spec.URL, tmpPath); err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmpPath) }() // no-op after successful rename

	if err := verifyFile(tmpPath, spec.SHA256); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("placing artifact into cache: %w", err)
	}
	if err := os.WriteFile(sidecarPath(path), []byte(strings.ToLower(spec.SHA256)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing hash sidecar: %w", err)
	}
	return path, nil
}

// invalidate removes a stale artifact and its sidecar.
func (c *Cache) invalidate(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale artifact: %w", err)
	}
	if err := os.Remove(sidecarPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale sidecar: %w", err)
	}
	return nil
}

// artifactPath maps a spec to its cache file path.
func (c *Cache) artifactPath(spec Spec) string {
	return filepath.Join(c.root, spec.Name+"-"+spec.Version+spec.Ext)
}

// sidecarPath returns the hash sidecar path for an artifact path.
func sidecarPath(path string) string {
	return path + ".hash"
}

// validate checks the spec's fields. Version accepts semver with or
// without the "v" prefix.
func (s Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	v := s.Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: version %q is not a semantic version", ErrInvalidSpec, s.Version)
	}
	if !isValidHexHash(s.SHA256) {
		return fmt.Errorf("%w: sha256 must be a 64-char hex digest", ErrInvalidSpec)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidSpec)
	}
	return nil
}
