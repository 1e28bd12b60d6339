// SPDX-License-Identifier: MPL-2.0

package startupscript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureCommands_AppendsMissing(t *testing.T) {
	t.Parallel()

	script := []byte("#!/bin/sh\n/sbin/network-init\n")
	got, changed, err := EnsureCommands(script, []string{"/opt/agent/bin/agent --daemon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("expected the script to change")
	}
	text := string(got)
	if !strings.Contains(text, "/sbin/network-init") {
		t.Fatalf("existing command lost: %s", text)
	}
	if !strings.Contains(text, "/opt/agent/bin/agent --daemon") {
		t.Fatalf("launch command not appended: %s", text)
	}
	if strings.Index(text, "/sbin/network-init") > strings.Index(text, "/opt/agent/bin/agent") {
		t.Fatalf("launch command must append after existing statements: %s", text)
	}
}

func TestEnsureCommands_Idempotent(t *testing.T) {
	t.Parallel()

	script := []byte("#!/bin/sh\n/opt/agent/bin/agent --daemon\n")
	got, changed, err := EnsureCommands(script, []string{"/opt/agent/bin/agent --daemon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("already-present command must not change the script: %s", got)
	}
	if string(got) != string(script) {
		t.Fatal("unchanged script must be returned verbatim")
	}
}

func TestEnsureCommands_PresenceSurvivesFormatting(t *testing.T) {
	t.Parallel()

	// Same command, different whitespace. The parser normalizes both
	// sides, so this must not duplicate.
	script := []byte("#!/bin/sh\n/opt/agent/bin/agent    --daemon\n")
	got, changed, err := EnsureCommands(script, []string{"/opt/agent/bin/agent --daemon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("reformatted duplicate appended: %s", got)
	}
}

func TestEnsureCommands_MalformedScript(t *testing.T) {
	t.Parallel()

	_, _, err := EnsureCommands([]byte("if then fi (((\n"), []string{"echo ok"})
	if err == nil {
		t.Fatal("expected parse error for malformed script")
	}
}

func TestEnsureCommands_MalformedCommand(t *testing.T) {
	t.Parallel()

	_, _, err := EnsureCommands([]byte("#!/bin/sh\n"), []string{"do done ((("})
	if err == nil {
		t.Fatal("expected parse error for malformed launch command")
	}
}

func TestEnsureInFile_CreatesMissingScript(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "startup.sh")
	changed, err := EnsureInFile(path, []string{"/opt/agent/bin/agent --daemon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("creating the script must report a change")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#!/bin/sh") {
		t.Fatalf("created script missing shebang: %s", data)
	}
	if !strings.Contains(string(data), "/opt/agent/bin/agent --daemon") {
		t.Fatalf("created script missing launch command: %s", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatal("created script must be executable")
	}
}

func TestEnsureInFile_SecondRunIsNoop(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "startup.sh")
	commands := []string{"/opt/agent/bin/agent --daemon", "logger agent-installed"}

	if _, err := EnsureInFile(path, commands); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	changed, err := EnsureInFile(path, commands)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("second run must be a no-op")
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("second run must not rewrite the script")
	}
}
