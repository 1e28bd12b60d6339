// SPDX-License-Identifier: MPL-2.0

package copier

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

// seedTree writes files (given as relative paths) under root.
func seedTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCopyTree_AllFilesSucceed(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	dst := t.TempDir()
	files := map[string]string{
		"agent.exe":            "binary",
		"conf/agent.conf":      "settings",
		"conf/certs/root.pem":  "cert",
		"plugins/net/dhcp.dll": "plugin",
	}
	seedTree(t, src, files)

	e := New(WithMaxWorkers(3))
	got, total, err := e.CopyTree(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != len(files) {
		t.Fatalf("expected %d enumerated, got %d", len(files), total)
	}
	if len(got) != len(files) {
		t.Fatalf("expected %d copied, got %d", len(files), len(got))
	}

	for rel, content := range files {
		data, err := os.ReadFile(filepath.Join(dst, rel))
		if err != nil {
			t.Fatalf("missing destination file %s: %v", rel, err)
		}
		if string(data) != content {
			t.Fatalf("content mismatch for %s: %q", rel, data)
		}
		if !slices.Contains(got, filepath.Join(dst, rel)) {
			t.Fatalf("result set missing %s", rel)
		}
	}
}

func TestCopyTree_PerFileFailuresExcludedNotFatal(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	dst := t.TempDir()
	seedTree(t, src, map[string]string{
		"ok1.txt":  "a",
		"ok2.txt":  "b",
		"bad.txt":  "c",
		"sub/d.go": "d",
	})

	// Unrecoverable per-file failure: the destination path already
	// exists as a directory, so every copy attempt fails with EISDIR.
	if err := os.MkdirAll(filepath.Join(dst, "bad.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	e := New(WithMaxWorkers(2))
	got, total, err := e.CopyTree(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("per-file failures must not fail the batch: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 enumerated, got %d", total)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 succeeded (N-K), got %d: %v", len(got), got)
	}
	if slices.Contains(got, filepath.Join(dst, "bad.txt")) {
		t.Fatal("failed job must not appear in the result set")
	}
}

func TestCopyTree_EmptySource(t *testing.T) {
	t.Parallel()
	e := New()
	got, total, err := e.CopyTree(context.Background(), t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(got) != 0 {
		t.Fatalf("expected empty result for empty source, got %d/%d", len(got), total)
	}
}

func TestCopyTree_MissingSourceFails(t *testing.T) {
	t.Parallel()
	e := New()
	_, _, err := e.CopyTree(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if err == nil {
		t.Fatal("expected enumeration error for missing source")
	}
}

func TestCopyTree_ContextCanceled(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	seedTree(t, src, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(WithMaxWorkers(1))
	_, _, err := e.CopyTree(ctx, src, t.TempDir())
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestCopyTree_OverwritesExistingDestination(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	dst := t.TempDir()
	seedTree(t, src, map[string]string{"agent.conf": "new"})
	seedTree(t, dst, map[string]string{"agent.conf": "old old old"})

	e := New()
	got, _, err := e.CopyTree(context.Background(), src, dst)
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected result: %v, %v", got, err)
	}
	data, _ := os.ReadFile(filepath.Join(dst, "agent.conf"))
	if string(data) != "new" {
		t.Fatalf("destination not truncated and rewritten: %q", data)
	}
}

func TestCopyFile_SingleAsset(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	seedTree(t, src, map[string]string{"agent.exe": "binary"})

	dst := filepath.Join(t.TempDir(), "deep", "nested", "agent.exe")
	e := New()
	if err := e.CopyFile(context.Background(), filepath.Join(src, "agent.exe"), dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "binary" {
		t.Fatalf("single-file copy failed: %q, %v", data, err)
	}
}

func TestCopyTree_RetriesTransientFailure(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	dst := t.TempDir()
	seedTree(t, src, map[string]string{"flaky.txt": "payload"})

	// Simulate a sharing violation that clears before the retry budget:
	// the destination exists as a directory but is removed shortly after
	// the first attempt fails.
	if err := os.MkdirAll(filepath.Join(dst, "flaky.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.Remove(filepath.Join(dst, "flaky.txt"))
	}()

	e := New(WithMaxWorkers(1))
	got, _, err := e.CopyTree(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected retry to recover the copy, got %d results", len(got))
	}
}
