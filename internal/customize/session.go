// SPDX-License-Identifier: MPL-2.0

package customize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"imgcraft-cli/internal/artifactcache"
	"imgcraft-cli/internal/copier"
	"imgcraft-cli/internal/hostlock"
	"imgcraft-cli/internal/imageservice"
	"imgcraft-cli/internal/plan"
	"imgcraft-cli/internal/retry"
	"imgcraft-cli/internal/startupscript"
)

// Phase is a workflow state. Transitions only move forward; the
// teardown path converges on PhaseCleanedUp from every phase.
type Phase string

const (
	PhaseCreated         Phase = "created"
	PhaseWorkAreaReady   Phase = "work-area-ready"
	PhaseRuntimeResolved Phase = "runtime-resolved"
	PhaseMounted         Phase = "mounted"
	PhaseModified        Phase = "modified"
	PhaseDismounted      Phase = "dismounted"
	PhaseCleanedUp       Phase = "cleaned-up"
)

// Outcome records how a dismounted session ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCommitted Outcome = "committed"
	OutcomeDiscarded Outcome = "discarded"
)

// lockImageServicing serializes mount and dismount operations across
// every imgcraft process on the host: the servicing facility cannot
// safely run two of them against overlapping state at once.
const lockImageServicing = "image-servicing"

var (
	// ErrImageNotFound is returned when the plan's image path does not
	// exist on the host.
	ErrImageNotFound = errors.New("image file not found")

	// ErrIncompleteCopy is returned when a tree copy places fewer files
	// than were enumerated. Partial results stay available on the
	// session Result.
	ErrIncompleteCopy = errors.New("tree copy incomplete")
)

type (
	// RuntimeResolver resolves a runtime package spec to a verified
	// local file. Satisfied by *artifactcache.Cache.
	RuntimeResolver interface {
		Resolve(ctx context.Context, spec artifactcache.Spec) (string, error)
	}

	// Session owns one customization run: its plan, work area, and the
	// collaborators it drives. A Session is not shared across
	// goroutines; concurrent runs each get their own Session.
	Session struct {
		plan     *plan.Plan
		servicer imageservice.Servicer
		hive     imageservice.HiveEditor
		resolver RuntimeResolver
		locks    *hostlock.Manager
		copier   *copier.Engine
		exec     *retry.Executor
		logger   *slog.Logger

		workRoot        string
		keepWorkArea    bool
		lockTimeout     time.Duration
		mountTimeout    time.Duration
		dismountTimeout time.Duration

		phase Phase
	}

	// Option configures a Session during construction.
	Option func(*Session)

	// Result carries a session's terminal state and partial progress.
	// It is populated even when Run returns an error.
	Result struct {
		Phase        Phase
		Outcome      Outcome
		RuntimePath  string
		Copied       []string
		WorkAreaPath string
	}
)

// WithHiveEditor sets the offline hive editor. Sessions without one
// fail if the plan contains hive edits.
func WithHiveEditor(h imageservice.HiveEditor) Option {
	return func(s *Session) { s.hive = h }
}

// WithRuntimeResolver sets the package resolver used for remote
// runtime specs.
func WithRuntimeResolver(r RuntimeResolver) Option {
	return func(s *Session) { s.resolver = r }
}

// WithLocks sets the critical section manager.
func WithLocks(m *hostlock.Manager) Option {
	return func(s *Session) { s.locks = m }
}

// WithCopier sets the parallel copy engine.
func WithCopier(e *copier.Engine) Option {
	return func(s *Session) { s.copier = e }
}

// WithLogger sets the session's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithWorkRoot sets where work areas are allocated.
func WithWorkRoot(dir string) Option {
	return func(s *Session) { s.workRoot = dir }
}

// WithKeepWorkArea retains the work area after the run for diagnostics.
func WithKeepWorkArea(keep bool) Option {
	return func(s *Session) { s.keepWorkArea = keep }
}

// WithLockTimeout bounds waits for host-wide critical sections.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Session) { s.lockTimeout = d }
}

// WithMountTimeout bounds a single mount attempt.
func WithMountTimeout(d time.Duration) Option {
	return func(s *Session) { s.mountTimeout = d }
}

// WithDismountTimeout bounds a single dismount attempt.
func WithDismountTimeout(d time.Duration) Option {
	return func(s *Session) { s.dismountTimeout = d }
}

// WithRetryPolicy sets the policy for servicing-call retries.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Session) {
		s.exec = retry.New(p,
			retry.WithClassifier(imageservice.IsTransientError),
			retry.WithLogger(s.logger))
	}
}

// NewSession creates a Session for one run of p.
func NewSession(p *plan.Plan, servicer imageservice.Servicer, opts ...Option) *Session {
	s := &Session{
		plan:            p,
		servicer:        servicer,
		logger:          slog.Default(),
		workRoot:        filepath.Join(os.TempDir(), "imgcraft"),
		lockTimeout:     15 * time.Minute,
		mountTimeout:    5 * time.Minute,
		dismountTimeout: 5 * time.Minute,
		phase:           PhaseCreated,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locks == nil {
		s.locks = hostlock.NewManager(hostlock.WithLogger(s.logger))
	}
	if s.copier == nil {
		s.copier = copier.New(copier.WithLogger(s.logger))
	}
	if s.exec == nil {
		s.exec = retry.New(
			retry.Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond},
			retry.WithClassifier(imageservice.IsTransientError),
			retry.WithLogger(s.logger))
	}
	return s
}

// Run executes the whole workflow. The returned Result is populated
// even on failure; the error is the first failure of the run, with
// teardown errors logged rather than masking it.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	res := &Result{Phase: PhaseCreated}

	if _, err := os.Stat(s.plan.Image.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("%w: %s", ErrImageNotFound, s.plan.Image.Path)
		}
		return res, fmt.Errorf("statting image: %w", err)
	}

	wa, err := NewWorkArea(s.workRoot, s.logger)
	if err != nil {
		return res, err
	}
	res.WorkAreaPath = wa.Root
	if s.keepWorkArea {
		wa.Retain()
	}
	s.setPhase(res, PhaseWorkAreaReady)

	defer func() {
		if rerr := wa.Remove(); rerr != nil {
			s.logger.Warn("work area removal failed, leaving for out-of-band cleanup",
				"root", wa.Root, "error", rerr)
		}
		s.setPhase(res, PhaseCleanedUp)
	}()

	runtimePath, err := s.resolveRuntime(ctx)
	if err != nil {
		return res, err
	}
	res.RuntimePath = runtimePath
	s.setPhase(res, PhaseRuntimeResolved)

	if err := s.mount(ctx, wa); err != nil {
		// A failed mount can leave a half-attached state behind, so
		// the discard dismount runs even here.
		s.dismountDiscard(ctx, wa, res)
		return res, err
	}
	s.setPhase(res, PhaseMounted)

	if err := s.modify(ctx, wa, res, runtimePath); err != nil {
		s.dismountDiscard(ctx, wa, res)
		return res, err
	}
	s.setPhase(res, PhaseModified)

	if err := s.dismountCommit(ctx, wa); err != nil {
		s.dismountDiscard(ctx, wa, res)
		return res, err
	}
	res.Outcome = OutcomeCommitted
	s.setPhase(res, PhaseDismounted)

	return res, nil
}

// setPhase advances the workflow state.
func (s *Session) setPhase(res *Result, p Phase) {
	s.logger.Debug("session phase", "from", string(s.phase), "to", string(p))
	s.phase = p
	res.Phase = p
}

// resolveRuntime produces the local path of the runtime package, going
// through the cache for remote specs and using local files directly.
// Returns "" when the plan injects no runtime.
func (s *Session) resolveRuntime(ctx context.Context) (string, error) {
	rt := s.plan.Runtime
	if rt == nil {
		return "", nil
	}

	if rt.LocalPath != "" {
		if _, err := os.Stat(rt.LocalPath); err != nil {
			return "", fmt.Errorf("runtime package %s: %w", rt.LocalPath, err)
		}
		return rt.LocalPath, nil
	}

	if s.resolver == nil {
		return "", fmt.Errorf("plan needs runtime %s-%s but no package resolver is configured", rt.Name, rt.Version)
	}
	return s.resolver.Resolve(ctx, artifactcache.Spec{
		Name:    rt.Name,
		Version: rt.Version,
		URL:     rt.URL,
		SHA256:  rt.SHA256,
		Ext:     rt.Ext,
	})
}

// mount attaches the image under the host-wide servicing critical
// section, retrying transient failures.
func (s *Session) mount(ctx context.Context, wa *WorkArea) error {
	return s.locks.With(ctx, lockImageServicing, s.lockTimeout, func(ctx context.Context) error {
		return s.exec.Do(ctx, "mount image", func(ctx context.Context) error {
			mctx, cancel := context.WithTimeout(ctx, s.mountTimeout)
			defer cancel()
			return s.servicer.Mount(mctx, s.plan.Image.Path, s.plan.Image.Index, wa.MountDir)
		})
	})
}

// modify applies the plan's changes to the mounted tree.
func (s *Session) modify(ctx context.Context, wa *WorkArea, res *Result, runtimePath string) error {
	for _, tc := range s.plan.Copies {
		dest := filepath.Join(wa.MountDir, filepath.FromSlash(tc.Dest))
		copied, total, err := s.copier.CopyTree(ctx, tc.Source, dest)
		res.Copied = append(res.Copied, copied...)
		if err != nil {
			return err
		}
		if len(copied) != total {
			return fmt.Errorf("%w: %s placed %d of %d files", ErrIncompleteCopy, tc.Source, len(copied), total)
		}
	}

	for _, fc := range s.plan.Files {
		dest := filepath.Join(wa.MountDir, filepath.FromSlash(fc.Dest))
		if err := s.copier.CopyFile(ctx, fc.Source, dest); err != nil {
			return fmt.Errorf("copying %s: %w", fc.Source, err)
		}
		res.Copied = append(res.Copied, dest)
	}

	if runtimePath != "" {
		if err := s.injectRuntime(ctx, wa, res, runtimePath); err != nil {
			return err
		}
	}

	if s.plan.StartupScript != "" && len(s.plan.StartupCommands) > 0 {
		scriptPath := filepath.Join(wa.MountDir, filepath.FromSlash(s.plan.StartupScript))
		err := s.exec.Do(ctx, "edit startup script", func(context.Context) error {
			_, err := startupscript.EnsureInFile(scriptPath, s.plan.StartupCommands)
			return err
		})
		if err != nil {
			return err
		}
	}

	return s.applyHiveEdits(ctx, wa)
}

// injectRuntime stages the package in the work area and places it into
// the image's install directory.
func (s *Session) injectRuntime(ctx context.Context, wa *WorkArea, res *Result, runtimePath string) error {
	staged := filepath.Join(wa.StagingDir, filepath.Base(runtimePath))
	if err := s.copier.CopyFile(ctx, runtimePath, staged); err != nil {
		return fmt.Errorf("staging runtime package: %w", err)
	}

	dest := filepath.Join(wa.MountDir, filepath.FromSlash(s.plan.Runtime.InstallDir), filepath.Base(runtimePath))
	if err := s.copier.CopyFile(ctx, staged, dest); err != nil {
		return fmt.Errorf("installing runtime package: %w", err)
	}
	res.Copied = append(res.Copied, dest)
	return nil
}

// applyHiveEdits groups the plan's hive edits per hive file and applies
// each group as one load/edit/unload cycle. Loading a hive is exclusive
// per path at the OS level, so each group runs under its own critical
// section name.
func (s *Session) applyHiveEdits(ctx context.Context, wa *WorkArea) error {
	if len(s.plan.HiveEdits) == 0 {
		return nil
	}
	if s.hive == nil {
		return errors.New("plan contains hive edits but no hive editor is configured")
	}

	byHive := make(map[string][]plan.HiveEdit)
	var order []string
	for _, edit := range s.plan.HiveEdits {
		if _, seen := byHive[edit.Hive]; !seen {
			order = append(order, edit.Hive)
		}
		byHive[edit.Hive] = append(byHive[edit.Hive], edit)
	}

	for _, hivePath := range order {
		edits := byHive[hivePath]
		fullPath := filepath.Join(wa.MountDir, filepath.FromSlash(hivePath))
		mountKey := "imgcraft-" + wa.ID

		err := s.locks.With(ctx, "hive-"+hivePath, s.lockTimeout, func(ctx context.Context) error {
			return s.exec.Do(ctx, "apply hive edits", func(ctx context.Context) error {
				if err := s.hive.LoadHive(ctx, fullPath, mountKey); err != nil {
					return err
				}
				for _, edit := range edits {
					if err := s.hive.Edit(ctx, mountKey, edit.Key, edit.Name, edit.Value); err != nil {
						// The hive must not stay loaded past the session.
						if uerr := s.hive.UnloadHive(ctx, mountKey); uerr != nil {
							s.logger.Warn("hive unload after failed edit",
								"hive", hivePath, "error", uerr)
						}
						return err
					}
				}
				return s.hive.UnloadHive(ctx, mountKey)
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// dismountCommit saves the mounted changes into the image.
func (s *Session) dismountCommit(ctx context.Context, wa *WorkArea) error {
	return s.locks.With(ctx, lockImageServicing, s.lockTimeout, func(ctx context.Context) error {
		return s.exec.Do(ctx, "commit dismount", func(ctx context.Context) error {
			dctx, cancel := context.WithTimeout(ctx, s.dismountTimeout)
			defer cancel()
			return s.servicer.Dismount(dctx, wa.MountDir, true)
		})
	})
}

// dismountDiscard detaches the image without committing, escalating to
// a forced dismount when the regular discard fails. It never returns an
// error; the caller re-surfaces the failure that brought it here.
func (s *Session) dismountDiscard(ctx context.Context, wa *WorkArea, res *Result) {
	// Teardown proceeds even when the run was canceled.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}

	err := s.locks.With(ctx, lockImageServicing, s.lockTimeout, func(ctx context.Context) error {
		dctx, cancel := context.WithTimeout(ctx, s.dismountTimeout)
		defer cancel()

		if derr := s.servicer.Dismount(dctx, wa.MountDir, false); derr != nil {
			s.logger.Warn("discard dismount failed, forcing", "error", derr)
			return s.servicer.DismountDiscardForced(dctx, wa.MountDir)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("forced dismount failed, mount may be left behind",
			"mount_dir", wa.MountDir, "error", err)
	}

	res.Outcome = OutcomeDiscarded
	s.setPhase(res, PhaseDismounted)
}
