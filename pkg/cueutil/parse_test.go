// SPDX-License-Identifier: MPL-2.0

package cueutil_test

import (
	"strings"
	"testing"

	"imgcraft-cli/pkg/cueutil"
)

const testSchema = `
#Artifact: {
	name:    string & !=""
	version: string & =~"^[0-9]+\\.[0-9]+\\.[0-9]+$"
	index:   int & >=1 | *1
}
`

type artifact struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Index   int    `json:"index"`
}

func TestParseAndDecode_Valid(t *testing.T) {
	t.Parallel()

	data := []byte(`{name: "agent", version: "7.3.4"}`)
	result, err := cueutil.ParseAndDecode[artifact]([]byte(testSchema), data, "#Artifact")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := *result.Value
	if got.Name != "agent" || got.Version != "7.3.4" {
		t.Errorf("decoded %+v", got)
	}
	if got.Index != 1 {
		t.Errorf("schema default not applied: index = %d", got.Index)
	}
}

func TestParseAndDecode_SchemaViolation(t *testing.T) {
	t.Parallel()

	data := []byte(`{name: "agent", version: "not-a-version"}`)
	_, err := cueutil.ParseAndDecode[artifact]([]byte(testSchema), data, "#Artifact",
		cueutil.WithFilename("plan.cue"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "plan.cue") {
		t.Errorf("error missing filename context: %v", err)
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("error missing field path: %v", err)
	}
}

func TestParseAndDecode_MalformedInput(t *testing.T) {
	t.Parallel()

	_, err := cueutil.ParseAndDecode[artifact]([]byte(testSchema), []byte(`{name: `), "#Artifact")
	if err == nil {
		t.Fatal("expected compile error for malformed input")
	}
}

func TestParseAndDecode_SizeLimit(t *testing.T) {
	t.Parallel()

	data := []byte(`{name: "agent", version: "7.3.4"}`)
	_, err := cueutil.ParseAndDecode[artifact]([]byte(testSchema), data, "#Artifact",
		cueutil.WithMaxFileSize(8))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Fatalf("expected size limit error, got: %v", err)
	}
}
