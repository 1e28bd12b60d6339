// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/imgcraft/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/imgcraft/config.cue on macOS, %APPDATA%\imgcraft\config.cue
// on Windows), with IMGCRAFT_* environment variables taking precedence over file values.
// The surface covers cache and work-area paths, operation timeouts, retry and copy tuning,
// and the servicing tool commands.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
