// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"imgcraft-cli/internal/config"
	"imgcraft-cli/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `imgcraft config` command tree.
func newConfigCommand() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage imgcraft configuration",
		Long: `Manage imgcraft configuration.

Configuration is stored in:
  - Linux: ~/.config/imgcraft/config.cue
  - macOS: ~/Library/Application Support/imgcraft/config.cue
  - Windows: %APPDATA%\imgcraft\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context())
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			fmt.Print(config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context) error {
	cfg, path, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		renderIssue(os.Stderr, issue.ConfigLoadFailedId, nil)
		return err
	}

	fmt.Println(TitleStyle.Render("Current Configuration"))
	fmt.Println()

	if path != "" {
		fmt.Printf("%s: %s\n", ValueStyle.Render("Config file"), path)
	} else {
		fmt.Printf("%s: %s\n", ValueStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	fmt.Printf("%s:\n", ValueStyle.Render("paths"))
	fmt.Printf("  cache: %s\n", orDefault(string(cfg.Paths.Cache)))
	fmt.Printf("  work_root: %s\n", orDefault(string(cfg.Paths.WorkRoot)))

	fmt.Println()
	fmt.Printf("%s:\n", ValueStyle.Render("timeouts"))
	fmt.Printf("  mount: %s\n", SuccessStyle.Render(cfg.Timeouts.Mount.String()))
	fmt.Printf("  dismount: %s\n", SuccessStyle.Render(cfg.Timeouts.Dismount.String()))
	fmt.Printf("  download: %s\n", SuccessStyle.Render(cfg.Timeouts.Download.String()))
	fmt.Printf("  lock: %s\n", SuccessStyle.Render(cfg.Timeouts.Lock.String()))

	fmt.Println()
	fmt.Printf("%s:\n", ValueStyle.Render("retry"))
	fmt.Printf("  max_attempts: %s\n", SuccessStyle.Render(fmt.Sprintf("%d", cfg.Retry.MaxAttempts)))
	fmt.Printf("  base_delay: %s\n", SuccessStyle.Render(cfg.Retry.BaseDelay.String()))

	fmt.Println()
	fmt.Printf("%s:\n", ValueStyle.Render("copy"))
	fmt.Printf("  max_workers: %s\n", SuccessStyle.Render(fmt.Sprintf("%d", cfg.Copy.MaxWorkers)))

	fmt.Println()
	fmt.Printf("%s:\n", ValueStyle.Render("servicing"))
	fmt.Printf("  command: %s\n", SuccessStyle.Render(string(cfg.Servicing.Command)))
	fmt.Printf("  hive_command: %s\n", SuccessStyle.Render(string(cfg.Servicing.HiveCommand)))

	fmt.Println()
	fmt.Printf("%s:\n", ValueStyle.Render("ui"))
	fmt.Printf("  color_scheme: %s\n", SuccessStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Printf("  verbose: %s\n", SuccessStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

// orDefault renders empty path values as their platform-default marker.
func orDefault(v string) string {
	if v == "" {
		return SubtitleStyle.Render("(platform default)")
	}
	return SuccessStyle.Render(v)
}

func initConfig() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("%s config file already exists at %s\n", WarningStyle.Render("!"), cfgPath)
		return nil
	}

	if err := config.CreateDefaultConfig(); err != nil {
		return err
	}
	fmt.Printf("%s created %s\n", SuccessStyle.Render("✓"), cfgPath)
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}
