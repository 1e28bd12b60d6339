// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"imgcraft-cli/internal/config"
	"imgcraft-cli/internal/copier"
	"imgcraft-cli/internal/customize"
	"imgcraft-cli/internal/hostlock"
	"imgcraft-cli/internal/imageservice"
	"imgcraft-cli/internal/issue"
	"imgcraft-cli/internal/plan"
	"imgcraft-cli/internal/retry"

	"github.com/spf13/cobra"
)

// jitterFraction spreads retry delays across concurrent sessions so they
// do not hammer the servicing facility in lockstep.
const jitterFraction = 0.2

var customizeCmd = &cobra.Command{
	Use:   "customize <plan>",
	Short: "Apply a customization plan to an image",
	Long: `Apply a customization plan to a bootable image.

The plan is a CUE file naming the target image and the changes to make:
directory trees and files to copy in, configuration hive edits, startup
commands, and an optional runtime package to inject.

The image is mounted offline, modified, and dismounted with the changes
committed. Any failure discards the mounted changes and leaves the image
file untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCustomize(cmd.Context(), args[0])
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <plan>",
	Short: "Validate a customization plan without applying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPlan(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), "plan is valid")
		fmt.Printf("  %s: %s (index %d)\n", ValueStyle.Render("image"), p.Image.Path, p.Image.Index)
		fmt.Printf("  %s: %d tree(s), %d file(s), %d hive edit(s), %d startup command(s)\n",
			ValueStyle.Render("changes"), len(p.Copies), len(p.Files), len(p.HiveEdits), len(p.StartupCommands))
		if p.Runtime != nil {
			fmt.Printf("  %s: %s %s\n", ValueStyle.Render("runtime"), p.Runtime.Name, p.Runtime.Version)
		}
		return nil
	},
}

// loadPlan loads and validates a plan, rendering catalog guidance on
// failure.
func loadPlan(path string) (*plan.Plan, error) {
	p, err := plan.Load(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			renderIssue(os.Stderr, issue.PlanNotFoundId, nil)
		case errors.Is(err, plan.ErrInvalidPlan):
			renderIssue(os.Stderr, issue.PlanParseErrorId, nil)
		}
		return nil, err
	}
	return p, nil
}

// runCustomize wires the workflow from configuration and executes it.
func runCustomize(ctx context.Context, planPath string) error {
	cfg, err := loadConfig(ctx, os.Stderr)
	if err != nil {
		return err
	}

	p, err := loadPlan(planPath)
	if err != nil {
		return err
	}

	logger := newLogger()

	workRoot := string(cfg.Paths.WorkRoot)
	if workRoot == "" {
		workRoot = config.DefaultWorkRoot()
	}

	servicer := imageservice.NewExecServicer(string(cfg.Servicing.Command), imageservice.WithLogger(logger))
	hive := imageservice.NewExecHiveEditor(string(cfg.Servicing.HiveCommand), imageservice.WithLogger(logger))

	cache, _, err := buildCache(cfg)
	if err != nil {
		return err
	}

	session := customize.NewSession(p, servicer,
		customize.WithLogger(logger),
		customize.WithHiveEditor(hive),
		customize.WithRuntimeResolver(cache),
		customize.WithLocks(hostlock.NewManager(hostlock.WithLogger(logger))),
		customize.WithCopier(copier.New(copier.WithMaxWorkers(cfg.Copy.MaxWorkers), copier.WithLogger(logger))),
		customize.WithWorkRoot(workRoot),
		customize.WithKeepWorkArea(keepWorkArea),
		customize.WithLockTimeout(cfg.Timeouts.Lock),
		customize.WithMountTimeout(cfg.Timeouts.Mount),
		customize.WithDismountTimeout(cfg.Timeouts.Dismount),
		customize.WithRetryPolicy(retry.Policy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			BaseDelay:      cfg.Retry.BaseDelay,
			JitterFraction: jitterFraction,
		}),
	)

	res, err := session.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
		if id := classifyCustomizeError(err); id != 0 {
			renderIssue(os.Stderr, id, cfg)
		}
		if res != nil && res.Outcome == customize.OutcomeDiscarded {
			fmt.Fprintln(os.Stderr, SubtitleStyle.Render("All mounted changes were discarded; the image file is unmodified."))
		}
		if keepWorkArea && res != nil && res.WorkAreaPath != "" {
			fmt.Fprintf(os.Stderr, "%s %s\n", SubtitleStyle.Render("Work area retained at:"), res.WorkAreaPath)
		}
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Printf("%s image customized\n", SuccessStyle.Render("✓"))
	fmt.Printf("  %s: %s\n", ValueStyle.Render("image"), p.Image.Path)
	fmt.Printf("  %s: %d file(s) placed\n", ValueStyle.Render("copied"), len(res.Copied))
	if res.RuntimePath != "" {
		fmt.Printf("  %s: %s\n", ValueStyle.Render("runtime"), res.RuntimePath)
	}
	if keepWorkArea {
		fmt.Printf("  %s: %s\n", ValueStyle.Render("work area"), res.WorkAreaPath)
	}
	return nil
}
