// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidDirPath is returned when a DirPath value is whitespace-only.
	ErrInvalidDirPath = errors.New("invalid directory path")
	// ErrInvalidBinaryFilePath is returned when a BinaryFilePath value is whitespace-only.
	ErrInvalidBinaryFilePath = errors.New("invalid binary file path")
	// ErrInvalidTimeoutsConfig is the sentinel error wrapped by InvalidTimeoutsConfigError.
	ErrInvalidTimeoutsConfig = errors.New("invalid timeouts config")
	// ErrInvalidRetryConfig is the sentinel error wrapped by InvalidRetryConfigError.
	ErrInvalidRetryConfig = errors.New("invalid retry config")
	// ErrInvalidCopyConfig is the sentinel error wrapped by InvalidCopyConfigError.
	ErrInvalidCopyConfig = errors.New("invalid copy config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// DirPath represents a filesystem path to a directory.
	// The zero value ("") is valid and means "use the platform default".
	// Non-zero values must not be whitespace-only.
	DirPath string

	// InvalidDirPathError is returned when a DirPath value is
	// non-empty but whitespace-only.
	InvalidDirPathError struct {
		Value DirPath
	}

	// BinaryFilePath represents a filesystem path or name of an executable.
	// A valid value must be non-empty and not whitespace-only.
	BinaryFilePath string

	// InvalidBinaryFilePathError is returned when a BinaryFilePath value is
	// empty or whitespace-only.
	InvalidBinaryFilePathError struct {
		Value BinaryFilePath
	}

	// InvalidTimeoutsConfigError is returned when a TimeoutsConfig has invalid fields.
	// It wraps ErrInvalidTimeoutsConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidTimeoutsConfigError struct {
		FieldErrors []error
	}

	// InvalidRetryConfigError is returned when a RetryConfig has invalid fields.
	InvalidRetryConfigError struct {
		FieldErrors []error
	}

	// InvalidCopyConfigError is returned when a CopyConfig has invalid fields.
	InvalidCopyConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Paths locates the cache and the work-area root.
		Paths PathsConfig `json:"paths" mapstructure:"paths"`
		// Timeouts bounds the long-running operations.
		Timeouts TimeoutsConfig `json:"timeouts" mapstructure:"timeouts"`
		// Retry configures the bounded-retry executor for servicing calls.
		Retry RetryConfig `json:"retry" mapstructure:"retry"`
		// Copy configures the parallel copy engine.
		Copy CopyConfig `json:"copy" mapstructure:"copy"`
		// Servicing names the host's image-servicing tools.
		Servicing ServicingConfig `json:"servicing" mapstructure:"servicing"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// PathsConfig locates imgcraft's directories on the host.
	PathsConfig struct {
		// Cache is the package cache directory.
		Cache DirPath `json:"cache" mapstructure:"cache"`
		// WorkRoot is where per-session work areas are created.
		WorkRoot DirPath `json:"work_root" mapstructure:"work_root"`
	}

	// TimeoutsConfig bounds the long-running operations. All values must
	// be positive.
	TimeoutsConfig struct {
		// Mount bounds a single mount attempt.
		Mount time.Duration `json:"mount" mapstructure:"mount"`
		// Dismount bounds a single dismount attempt.
		Dismount time.Duration `json:"dismount" mapstructure:"dismount"`
		// Download bounds one package download.
		Download time.Duration `json:"download" mapstructure:"download"`
		// Lock bounds the wait for host-wide critical sections.
		Lock time.Duration `json:"lock" mapstructure:"lock"`
	}

	// RetryConfig configures the bounded-retry executor.
	RetryConfig struct {
		// MaxAttempts is the total number of attempts, including the first.
		MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts"`
		// BaseDelay is the delay before the first retry; later retries
		// grow exponentially from it.
		BaseDelay time.Duration `json:"base_delay" mapstructure:"base_delay"`
	}

	// CopyConfig configures the parallel copy engine.
	CopyConfig struct {
		// MaxWorkers bounds the copy worker pool.
		MaxWorkers int `json:"max_workers" mapstructure:"max_workers"`
	}

	// ServicingConfig names the host tools imgcraft shells out to.
	ServicingConfig struct {
		// Command is the image mount/dismount tool.
		Command BinaryFilePath `json:"command" mapstructure:"command"`
		// HiveCommand is the offline hive editing tool.
		HiveCommand BinaryFilePath `json:"hive_command" mapstructure:"hive_command"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// IsValid returns whether the TimeoutsConfig has valid fields.
// Every timeout must be positive.
func (c TimeoutsConfig) IsValid() (bool, []error) {
	var errs []error
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"mount", c.Mount},
		{"dismount", c.Dismount},
		{"download", c.Download},
		{"lock", c.Lock},
	} {
		if f.d <= 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s must be positive, got %s", f.name, f.d))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidTimeoutsConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidTimeoutsConfigError.
func (e *InvalidTimeoutsConfigError) Error() string {
	return fmt.Sprintf("invalid timeouts config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidTimeoutsConfig for errors.Is() compatibility.
func (e *InvalidTimeoutsConfigError) Unwrap() error { return ErrInvalidTimeoutsConfig }

// IsValid returns whether the RetryConfig has valid fields.
func (c RetryConfig) IsValid() (bool, []error) {
	var errs []error
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.BaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay must be positive, got %s", c.BaseDelay))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRetryConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRetryConfigError.
func (e *InvalidRetryConfigError) Error() string {
	return fmt.Sprintf("invalid retry config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidRetryConfig for errors.Is() compatibility.
func (e *InvalidRetryConfigError) Unwrap() error { return ErrInvalidRetryConfig }

// IsValid returns whether the CopyConfig has valid fields.
func (c CopyConfig) IsValid() (bool, []error) {
	if c.MaxWorkers < 1 {
		return false, []error{&InvalidCopyConfigError{
			FieldErrors: []error{fmt.Errorf("copy.max_workers must be at least 1, got %d", c.MaxWorkers)},
		}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCopyConfigError.
func (e *InvalidCopyConfigError) Error() string {
	return fmt.Sprintf("invalid copy config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidCopyConfig for errors.Is() compatibility.
func (e *InvalidCopyConfigError) Unwrap() error { return ErrInvalidCopyConfig }

// IsValid returns whether the PathsConfig has valid fields.
// Both paths delegate to DirPath.IsValid(); empty values mean defaults.
func (c PathsConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Cache.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.WorkRoot.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// IsValid returns whether the ServicingConfig has valid fields.
// Both commands are required.
func (c ServicingConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Command.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.HiveCommand.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to each sub-config's IsValid().
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Paths.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Timeouts.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Retry.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Copy.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Servicing.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// String returns the string representation of the DirPath.
func (p DirPath) String() string { return string(p) }

// IsValid returns whether the DirPath is valid.
// The zero value ("") is valid (means "use the platform default").
// Non-zero values must not be whitespace-only.
func (p DirPath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidDirPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDirPathError.
func (e *InvalidDirPathError) Error() string {
	return fmt.Sprintf("invalid directory path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidDirPath for errors.Is() compatibility.
func (e *InvalidDirPathError) Unwrap() error { return ErrInvalidDirPath }

// String returns the string representation of the BinaryFilePath.
func (p BinaryFilePath) String() string { return string(p) }

// IsValid returns whether the BinaryFilePath is valid.
// A valid value must be non-empty and not whitespace-only.
func (p BinaryFilePath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidBinaryFilePathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidBinaryFilePathError.
func (e *InvalidBinaryFilePathError) Error() string {
	return fmt.Sprintf("invalid binary file path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidBinaryFilePath for errors.Is() compatibility.
func (e *InvalidBinaryFilePathError) Unwrap() error { return ErrInvalidBinaryFilePath }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Cache:    "", // Will use the platform cache dir if empty
			WorkRoot: "", // Will use the platform temp dir if empty
		},
		Timeouts: TimeoutsConfig{
			Mount:    5 * time.Minute,
			Dismount: 5 * time.Minute,
			Download: 10 * time.Minute,
			Lock:     15 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
		},
		Copy: CopyConfig{
			MaxWorkers: 4,
		},
		Servicing: ServicingConfig{
			Command:     "servicetool",
			HiveCommand: "servicetool",
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
