// SPDX-License-Identifier: MPL-2.0

package copier

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"imgcraft-cli/internal/retry"
)

const (
	// defaultMaxWorkers bounds the copy pool when the caller passes 0.
	defaultMaxWorkers = 4

	// Per-file retry budget. Freshly written files commonly fail with
	// transient sharing violations on the first touch.
	fileAttempts  = 3
	fileBaseDelay = 100 * time.Millisecond
)

type (
	// Engine copies trees with bounded concurrency.
	Engine struct {
		maxWorkers int
		logger     *slog.Logger
		fileRetry  *retry.Executor
	}

	// Option configures an Engine during construction.
	Option func(*Engine)

	// copyJob is one source→destination file copy.
	copyJob struct {
		src, dst string
		mode     fs.FileMode
	}
)

// WithMaxWorkers bounds the worker pool.
func WithMaxWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxWorkers = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxWorkers: defaultMaxWorkers,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.fileRetry = retry.New(
		retry.Policy{MaxAttempts: fileAttempts, BaseDelay: fileBaseDelay, JitterFraction: 0.5},
		retry.WithClassifier(func(error) bool { return true }),
		retry.WithLogger(e.logger),
	)
	return e
}

// CopyTree copies every regular file under src into the corresponding
// path under dst and returns the destination paths that succeeded, in no
// particular order. Per-file failures are logged and skipped; only
// enumeration failure or context cancellation fails the whole call.
// Returns the succeeded count alongside the total enumerated count via
// len(result) vs. the second return value.
func (e *Engine) CopyTree(ctx context.Context, src, dst string) ([]string, int, error) {
	jobs, err := enumerate(src, dst)
	if err != nil {
		return nil, 0, fmt.Errorf("enumerating %s: %w", src, err)
	}

	workers := e.maxWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		return nil, 0, nil
	}

	jobCh := make(chan copyJob)
	var (
		mu        sync.Mutex
		succeeded []string
		wg        sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Destination directories are created lazily and memoized
			// per worker, so hot directories are not re-checked per file.
			dirsMade := make(map[string]struct{})
			for job := range jobCh {
				if err := e.copyOne(ctx, job, dirsMade); err != nil {
					e.logger.Warn("file copy failed, excluded from result",
						"source", job.src, "dest", job.dst, "error", err)
					continue
				}
				mu.Lock()
				succeeded = append(succeeded, job.dst)
				mu.Unlock()
			}
		}()
	}

	var ctxErr error
feed:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		case jobCh <- job:
		}
	}
	close(jobCh)
	wg.Wait()

	if ctxErr != nil {
		return succeeded, len(jobs), fmt.Errorf("copy tree aborted: %w", ctxErr)
	}
	return succeeded, len(jobs), nil
}

// copyOne copies a single file under the per-file retry budget.
func (e *Engine) copyOne(ctx context.Context, job copyJob, dirsMade map[string]struct{}) error {
	dir := filepath.Dir(job.dst)
	if _, ok := dirsMade[dir]; !ok {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		dirsMade[dir] = struct{}{}
	}
	return e.fileRetry.Do(ctx, "copy "+filepath.Base(job.src), func(context.Context) error {
		return copyFile(job.src, job.dst, job.mode)
	})
}

// enumerate walks src once and produces the job list. Ordering follows
// the walk, but workers may complete jobs in any order.
func enumerate(src, dst string) ([]copyJob, error) {
	var jobs []copyJob
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		jobs = append(jobs, copyJob{
			src:  path,
			dst:  filepath.Join(dst, rel),
			mode: info.Mode().Perm(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// copyFile copies src to dst, truncating any existing destination and
// preserving the source permission bits.
func copyFile(src, dst string, mode fs.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

// CopyFile copies one file, creating the destination directory if
// needed. Used for single-asset placement outside of tree batches.
func (e *Engine) CopyFile(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return e.fileRetry.Do(ctx, "copy "+filepath.Base(src), func(context.Context) error {
		return copyFile(src, dst, info.Mode().Perm())
	})
}
