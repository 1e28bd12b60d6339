// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
	"time"
)

func TestColorScheme_IsValid(t *testing.T) {
	tests := []struct {
		scheme ColorScheme
		valid  bool
	}{
		{ColorSchemeAuto, true},
		{ColorSchemeDark, true},
		{ColorSchemeLight, true},
		{ColorScheme("rainbow"), false},
		{ColorScheme(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			valid, errs := tt.scheme.IsValid()
			if valid != tt.valid {
				t.Errorf("IsValid() = %v, want %v", valid, tt.valid)
			}
			if !tt.valid && !errors.Is(errs[0], ErrInvalidColorScheme) {
				t.Errorf("error should wrap ErrInvalidColorScheme, got %v", errs[0])
			}
		})
	}
}

func TestDirPath_IsValid(t *testing.T) {
	if valid, _ := DirPath("").IsValid(); !valid {
		t.Error("empty DirPath must be valid (means default)")
	}
	if valid, _ := DirPath("/var/cache/imgcraft").IsValid(); !valid {
		t.Error("regular path must be valid")
	}
	valid, errs := DirPath("   ").IsValid()
	if valid {
		t.Error("whitespace-only DirPath must be invalid")
	}
	if !errors.Is(errs[0], ErrInvalidDirPath) {
		t.Errorf("error should wrap ErrInvalidDirPath, got %v", errs[0])
	}
}

func TestBinaryFilePath_IsValid(t *testing.T) {
	if valid, _ := BinaryFilePath("servicetool").IsValid(); !valid {
		t.Error("tool name must be valid")
	}
	valid, errs := BinaryFilePath("").IsValid()
	if valid {
		t.Error("empty BinaryFilePath must be invalid")
	}
	if !errors.Is(errs[0], ErrInvalidBinaryFilePath) {
		t.Errorf("error should wrap ErrInvalidBinaryFilePath, got %v", errs[0])
	}
}

func TestTimeoutsConfig_IsValid(t *testing.T) {
	good := DefaultConfig().Timeouts
	if valid, errs := good.IsValid(); !valid {
		t.Fatalf("defaults must validate: %v", errs)
	}

	bad := good
	bad.Mount = 0
	valid, errs := bad.IsValid()
	if valid {
		t.Fatal("zero mount timeout must be invalid")
	}
	if !errors.Is(errs[0], ErrInvalidTimeoutsConfig) {
		t.Errorf("error should wrap ErrInvalidTimeoutsConfig, got %v", errs[0])
	}
}

func TestRetryConfig_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		cfg   RetryConfig
		valid bool
	}{
		{"defaults", DefaultConfig().Retry, true},
		{"single attempt", RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}, true},
		{"zero attempts", RetryConfig{MaxAttempts: 0, BaseDelay: time.Second}, false},
		{"negative delay", RetryConfig{MaxAttempts: 3, BaseDelay: -time.Second}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, errs := tt.cfg.IsValid()
			if valid != tt.valid {
				t.Errorf("IsValid() = %v, want %v (errs: %v)", valid, tt.valid, errs)
			}
			if !tt.valid && !errors.Is(errs[0], ErrInvalidRetryConfig) {
				t.Errorf("error should wrap ErrInvalidRetryConfig, got %v", errs[0])
			}
		})
	}
}

func TestCopyConfig_IsValid(t *testing.T) {
	if valid, _ := (CopyConfig{MaxWorkers: 1}).IsValid(); !valid {
		t.Error("one worker must be valid")
	}
	valid, errs := (CopyConfig{MaxWorkers: 0}).IsValid()
	if valid {
		t.Error("zero workers must be invalid")
	}
	if !errors.Is(errs[0], ErrInvalidCopyConfig) {
		t.Errorf("error should wrap ErrInvalidCopyConfig, got %v", errs[0])
	}
}

func TestConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if valid, errs := cfg.IsValid(); !valid {
		t.Fatalf("default config must validate: %v", errs)
	}

	cfg.Servicing.Command = ""
	cfg.Retry.MaxAttempts = 0
	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("broken config must not validate")
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Errorf("error should wrap ErrInvalidConfig, got %v", errs[0])
	}

	var invalidErr *InvalidConfigError
	if !errors.As(errs[0], &invalidErr) {
		t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
	}
	if len(invalidErr.FieldErrors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(invalidErr.FieldErrors), invalidErr.FieldErrors)
	}
}
