// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for imgcraft.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"imgcraft-cli/internal/config"
	"imgcraft-cli/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// keepWorkArea retains session work areas for diagnostics
	keepWorkArea bool

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "imgcraft",
		Short: "Offline bootable image customization",
		Long: TitleStyle.Render("imgcraft") + SubtitleStyle.Render(" - Offline bootable image customization") + `

imgcraft mounts a bootable image, applies a customization plan to its
filesystem and configuration hives, injects a cached runtime package,
and dismounts committing or discarding the changes.

Plans are written in CUE and describe the target image, the content
to copy in, hive edits, and startup commands.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Write a plan.cue describing your image and changes
  2. Run: imgcraft customize plan.cue
  3. Inspect failures with --verbose and --keep-work-area

` + SubtitleStyle.Render("Examples:") + `
  imgcraft customize plan.cue      Apply a customization plan
  imgcraft cache resolve ...       Pre-fetch a runtime package
  imgcraft config show             Show current configuration`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/imgcraft/config.cue)")
	rootCmd.PersistentFlags().BoolVar(&keepWorkArea, "keep-work-area", false, "retain the session work area for diagnostics")

	rootCmd.AddCommand(customizeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newCacheCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// fang overrides rootCmd.Version, so pass it via fang.WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadConfig loads configuration, honoring the --config flag. A load
// failure surfaces the issue catalog entry and falls back to defaults
// only when no explicit path was given.
func loadConfig(ctx context.Context, stderr *os.File) (*config.Config, error) {
	cfg, _, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		if cfgFile != "" {
			renderIssue(stderr, issue.ConfigLoadFailedId, config.DefaultConfig())
			return nil, err
		}
		fmt.Fprintln(stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return config.DefaultConfig(), nil
	}

	if !verbose {
		verbose = cfg.UI.Verbose
	}
	return cfg, nil
}

// newLogger builds the CLI logger, raising the level in verbose mode.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderIssue writes the catalog entry for id, styled for the configured
// color scheme.
func renderIssue(stderr *os.File, id issue.Id, cfg *config.Config) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}

	scheme := "dark"
	if cfg != nil && cfg.UI.ColorScheme == config.ColorSchemeLight {
		scheme = "light"
	}

	rendered, err := entry.Render(scheme)
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", err)
		return
	}
	fmt.Fprint(stderr, rendered)
}
