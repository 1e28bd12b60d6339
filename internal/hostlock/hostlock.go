// SPDX-License-Identifier: MPL-2.0

package hostlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrTimeout is the sentinel matched by errors.Is when a lock could not
// be acquired within the caller's timeout.
var ErrTimeout = errors.New("lock acquisition timed out")

// defaultPollInterval is how often a waiter re-attempts acquisition.
// Short enough to keep lock handoff latency low, long enough that a
// handful of waiting processes do not hammer the filesystem.
const defaultPollInterval = 2 * time.Second

type (
	// Manager acquires named locks. All imgcraft processes on one host
	// that use the same lock directory contend on the same names.
	Manager struct {
		dir          string
		pollInterval time.Duration
		logger       *slog.Logger
	}

	// Option configures a Manager during construction.
	Option func(*Manager)

	// TimeoutError reports a failed acquisition. It matches ErrTimeout
	// via errors.Is.
	TimeoutError struct {
		Name    string
		Timeout time.Duration
	}
)

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("lock %q not acquired within %s", e.Name, e.Timeout)
}

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// WithDir overrides the lock file directory.
func WithDir(dir string) Option {
	return func(m *Manager) { m.dir = dir }
}

// WithPollInterval overrides the acquisition poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.pollInterval = d }
}

// WithLogger sets the logger for acquisition progress entries.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager. Lock files default to $XDG_RUNTIME_DIR
// (per-user tmpfs, auto-cleaned) with a fallback to os.TempDir() when the
// env var is unset. The zero-byte lock files are harmless if orphaned —
// the kernel releases the flock when the fd is closed, including on
// process crash.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		dir:          defaultLockDir(),
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire takes the named lock, polling until it is held or timeout
// elapses. At most one holder per name exists on the host at any instant.
// The returned Handle must be released on every exit path; With is the
// preferred scoped form.
func (m *Manager) Acquire(ctx context.Context, name string, timeout time.Duration) (*Handle, error) {
	path := m.lockPath(name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	deadline := time.Now().Add(timeout)
	for polls := 0; ; polls++ {
		held, err := tryFlock(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}
		if held {
			if polls > 0 {
				m.logger.Debug("lock acquired after waiting", "name", name, "polls", polls)
			}
			return &Handle{name: name, file: f, logger: m.logger}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			f.Close()
			return nil, &TimeoutError{Name: name, Timeout: timeout}
		}

		m.logger.Debug("waiting for lock", "name", name, "remaining", remaining.Round(time.Second))

		wait := m.pollInterval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			f.Close()
			return nil, fmt.Errorf("waiting for lock %q: %w", name, ctx.Err())
		case <-timer.C:
		}
	}
}

// With runs fn while holding the named lock, releasing it on every exit
// path including panics.
func (m *Manager) With(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	h, err := m.Acquire(ctx, name, timeout)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(ctx)
}

// lockPath maps a lock name to its well-known file path.
func (m *Manager) lockPath(name string) string {
	return filepath.Join(m.dir, "imgcraft-"+sanitizeName(name)+".lock")
}

// defaultLockDir returns the directory for lock files, preferring the
// per-user runtime dir.
func defaultLockDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// sanitizeName maps a lock name to a safe file name component.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
