// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"imgcraft-cli/internal/artifactcache"
	"imgcraft-cli/internal/config"
	"imgcraft-cli/internal/hostlock"
	"imgcraft-cli/internal/transport"

	"github.com/spf13/cobra"
)

// newCacheCommand creates the `imgcraft cache` command tree.
func newCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the runtime package cache",
		Long: `Manage the runtime package cache.

Downloaded runtime packages are verified against their expected content
hash and kept for reuse across sessions. Each cached package carries a
hash sidecar so later sessions can cheaply re-verify it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var spec artifactcache.Spec
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Fetch and verify a runtime package into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}

			cache, _, err := buildCache(cfg)
			if err != nil {
				return err
			}

			path, err := cache.Resolve(cmd.Context(), spec)
			if err != nil {
				fmt.Fprintf(os.Stderr, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
				if id := classifyCustomizeError(err); id != 0 {
					renderIssue(os.Stderr, id, cfg)
				}
				return &ExitError{Code: 1, Err: err}
			}

			fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	resolveCmd.Flags().StringVar(&spec.Name, "name", "", "package name")
	resolveCmd.Flags().StringVar(&spec.Version, "version", "", "package version (semver)")
	resolveCmd.Flags().StringVar(&spec.URL, "url", "", "download URL")
	resolveCmd.Flags().StringVar(&spec.SHA256, "sha256", "", "expected content hash (64-char hex)")
	resolveCmd.Flags().StringVar(&spec.Ext, "ext", ".tar.gz", "package file extension")
	for _, flag := range []string{"name", "version", "url", "sha256"} {
		_ = resolveCmd.MarkFlagRequired(flag)
	}
	cacheCmd.AddCommand(resolveCmd)

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			root, err := cacheRootFromConfig(cfg)
			if err != nil {
				return err
			}
			fmt.Println(root)
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all cached packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			root, err := cacheRootFromConfig(cfg)
			if err != nil {
				return err
			}
			if err := os.RemoveAll(root); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Printf("%s cache cleared (%s)\n", SuccessStyle.Render("✓"), root)
			return nil
		},
	})

	return cacheCmd
}

// cacheRootFromConfig resolves the configured cache directory, falling
// back to the platform default.
func cacheRootFromConfig(cfg *config.Config) (string, error) {
	if root := string(cfg.Paths.Cache); root != "" {
		return root, nil
	}
	return config.DefaultCacheDir()
}

// buildCache wires a cache from configuration. The fill locks share the
// cache directory so independent processes serialize on the same files.
func buildCache(cfg *config.Config) (*artifactcache.Cache, string, error) {
	root, err := cacheRootFromConfig(cfg)
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating cache directory: %w", err)
	}

	logger := newLogger()
	cache := artifactcache.New(
		root,
		transport.NewClient(transport.WithTimeout(cfg.Timeouts.Download), transport.WithUserAgent("imgcraft/"+Version)),
		hostlock.NewManager(hostlock.WithDir(root), hostlock.WithLogger(logger)),
		artifactcache.WithLockTimeout(cfg.Timeouts.Lock),
		artifactcache.WithLogger(logger),
	)
	return cache, root, nil
}
