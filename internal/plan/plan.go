// SPDX-License-Identifier: MPL-2.0

package plan

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"imgcraft-cli/pkg/cueutil"
)

//go:embed plan_schema.cue
var schemaBytes []byte

// ErrInvalidPlan is the sentinel for plans that fail schema validation.
var ErrInvalidPlan = errors.New("invalid customization plan")

type (
	// Plan describes one image customization run.
	Plan struct {
		Image           ImageRef    `json:"image"`
		Runtime         *RuntimeSpec `json:"runtime,omitempty"`
		Copies          []TreeCopy  `json:"copies"`
		Files           []FileCopy  `json:"files"`
		HiveEdits       []HiveEdit  `json:"hive_edits"`
		StartupScript   string      `json:"startup_script,omitempty"`
		StartupCommands []string    `json:"startup_commands"`
	}

	// ImageRef identifies the target image and the image index within it.
	ImageRef struct {
		Path  string `json:"path"`
		Index int    `json:"index"`
	}

	// RuntimeSpec names the runtime package to inject. Either URL+SHA256
	// (verified download through the cache) or LocalPath must be set; the
	// schema enforces the alternative.
	RuntimeSpec struct {
		Name       string `json:"name"`
		Version    string `json:"version"`
		URL        string `json:"url,omitempty"`
		SHA256     string `json:"sha256,omitempty"`
		LocalPath  string `json:"local_path,omitempty"`
		Ext        string `json:"ext"`
		InstallDir string `json:"install_dir"`
	}

	// TreeCopy copies a host directory into the mounted image.
	TreeCopy struct {
		Source string `json:"source"`
		Dest   string `json:"dest"`
	}

	// FileCopy copies a single host file into the mounted image.
	FileCopy struct {
		Source string `json:"source"`
		Dest   string `json:"dest"`
	}

	// HiveEdit sets one value in an offline configuration hive. Hive is
	// relative to the mount root.
	HiveEdit struct {
		Hive  string `json:"hive"`
		Key   string `json:"key"`
		Name  string `json:"name"`
		Value string `json:"value"`
	}
)

// Load reads and validates the plan at path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return Parse(data, filepath.Base(path))
}

// Parse validates plan data against the embedded schema. filename is
// used in error messages only.
func Parse(data []byte, filename string) (*Plan, error) {
	result, err := cueutil.ParseAndDecode[Plan](schemaBytes, data, "#Plan",
		cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return result.Value, nil
}
