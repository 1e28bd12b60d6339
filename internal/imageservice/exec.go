// SPDX-License-Identifier: MPL-2.0

package imageservice

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strconv"
)

type (
	// ExecServicer shells out to the host's image-servicing tool for
	// mount and dismount operations.
	ExecServicer struct {
		binary string
		logger *slog.Logger
	}

	// ExecHiveEditor shells out to the host's hive tool for offline
	// configuration edits.
	ExecHiveEditor struct {
		binary string
		logger *slog.Logger
	}

	// ExecOption configures the exec-backed implementations.
	ExecOption func(*execOptions)

	execOptions struct {
		logger *slog.Logger
	}
)

// WithLogger sets the logger for an exec-backed implementation.
func WithLogger(l *slog.Logger) ExecOption {
	return func(o *execOptions) { o.logger = l }
}

func applyExecOptions(opts []ExecOption) execOptions {
	o := execOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewExecServicer creates a Servicer that invokes binary for each
// operation. The binary must support the mount/dismount verbs described
// in the command construction below.
func NewExecServicer(binary string, opts ...ExecOption) *ExecServicer {
	o := applyExecOptions(opts)
	return &ExecServicer{binary: binary, logger: o.logger}
}

// Mount implements Servicer.
func (s *ExecServicer) Mount(ctx context.Context, imagePath string, index int, mountDir string) error {
	stderr, err := runTool(ctx, s.logger, s.binary,
		"mount", "--image", imagePath, "--index", strconv.Itoa(index), "--dir", mountDir)
	if err != nil {
		return &MountError{
			ImagePath: imagePath,
			Index:     index,
			MountDir:  mountDir,
			Stderr:    stderr,
			Cause:     err,
		}
	}
	return nil
}

// Dismount implements Servicer.
func (s *ExecServicer) Dismount(ctx context.Context, mountDir string, commit bool) error {
	verb := "--discard"
	if commit {
		verb = "--commit"
	}
	stderr, err := runTool(ctx, s.logger, s.binary, "dismount", "--dir", mountDir, verb)
	if err != nil {
		return &DismountError{MountDir: mountDir, Commit: commit, Stderr: stderr, Cause: err}
	}
	return nil
}

// DismountDiscardForced implements Servicer.
func (s *ExecServicer) DismountDiscardForced(ctx context.Context, mountDir string) error {
	stderr, err := runTool(ctx, s.logger, s.binary, "dismount", "--dir", mountDir, "--discard", "--force")
	if err != nil {
		return &DismountError{MountDir: mountDir, Commit: false, Stderr: stderr, Cause: err}
	}
	return nil
}

// NewExecHiveEditor creates a HiveEditor backed by binary.
func NewExecHiveEditor(binary string, opts ...ExecOption) *ExecHiveEditor {
	o := applyExecOptions(opts)
	return &ExecHiveEditor{binary: binary, logger: o.logger}
}

// LoadHive implements HiveEditor.
func (h *ExecHiveEditor) LoadHive(ctx context.Context, hivePath, mountKey string) error {
	stderr, err := runTool(ctx, h.logger, h.binary, "hive", "load", hivePath, mountKey)
	if err != nil {
		return &HiveError{HivePath: hivePath, Op: "load", Stderr: stderr, Cause: err}
	}
	return nil
}

// Edit implements HiveEditor.
func (h *ExecHiveEditor) Edit(ctx context.Context, mountKey, keyPath, name, value string) error {
	stderr, err := runTool(ctx, h.logger, h.binary, "hive", "set", mountKey, keyPath, name, value)
	if err != nil {
		return &HiveError{HivePath: mountKey, Op: "set", Stderr: stderr, Cause: err}
	}
	return nil
}

// UnloadHive implements HiveEditor.
func (h *ExecHiveEditor) UnloadHive(ctx context.Context, mountKey string) error {
	stderr, err := runTool(ctx, h.logger, h.binary, "hive", "unload", mountKey)
	if err != nil {
		return &HiveError{HivePath: mountKey, Op: "unload", Stderr: stderr, Cause: err}
	}
	return nil
}

// runTool invokes the servicing binary and returns its captured stderr
// alongside any execution error. Stderr is returned even on failure so
// the caller can classify transient conditions.
func runTool(ctx context.Context, logger *slog.Logger, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("running servicing tool", "binary", binary, "args", args)
	err := cmd.Run()
	return stderr.String(), err
}
