// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	// Verify all IDs are unique
	ids := []Id{
		PlanNotFoundId,
		PlanParseErrorId,
		ConfigLoadFailedId,
		ImageNotFoundId,
		MountFailedId,
		DismountFailedId,
		LockTimeoutId,
		CacheIntegrityId,
		DownloadFailedId,
		ServicingToolNotFoundId,
		PermissionDeniedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// Verify IDs start at 1 (iota + 1)
	if PlanNotFoundId != 1 {
		t.Errorf("PlanNotFoundId = %d, want 1", PlanNotFoundId)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{PlanNotFoundId, false, "No customization plan found"},
		{PlanParseErrorId, false, "Failed to parse"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{ImageNotFoundId, false, "Image file not found"},
		{MountFailedId, false, "Image mount failed"},
		{DismountFailedId, false, "Image dismount failed"},
		{LockTimeoutId, false, "Timed out waiting"},
		{CacheIntegrityId, false, "failed verification"},
		{DownloadFailedId, false, "Package download failed"},
		{ServicingToolNotFoundId, false, "Servicing tool not found"},
		{PermissionDeniedId, false, "Permission denied"},
		{Id(9999), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			got := Get(tt.id)

			if tt.wantNil {
				if got != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if got == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if got.Id() != tt.id {
				t.Errorf("Get(%d).Id() = %d", tt.id, got.Id())
			}
			if tt.contains != "" && !strings.Contains(string(got.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	all := Values()

	expectedCount := 11 // Based on the number of predefined issues
	if len(all) != expectedCount {
		t.Errorf("Values() returned %d issues, want %d", len(all), expectedCount)
	}

	for _, iss := range all {
		if iss.Id() == 0 {
			t.Error("found issue with ID 0")
		}
		if iss.MarkdownMsg() == "" {
			t.Errorf("issue %d has empty MarkdownMsg", iss.Id())
		}
	}
}

func TestIssue_Render_WithLinks(t *testing.T) {
	// Mock the render function for testing
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	testIssue := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test Issue\n\nThis is a test.",
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "See also") {
		t.Error("Render() with links should contain 'See also'")
	}
}

func TestIssue_Render_NoLinks(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	testIssue := &Issue{
		id:    Id(9998),
		mdMsg: "# Test Issue\n\nNo links here.",
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	for _, iss := range Values() {
		rendered, err := iss.Render("")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", iss.Id(), err)
		}
		if rendered == "" {
			t.Errorf("issue %d rendered to empty string", iss.Id())
		}
	}
}

func TestIssue_DocLinksClone(t *testing.T) {
	testIssue := &Issue{
		id:       Id(9997),
		mdMsg:    "x",
		docLinks: []HttpLink{"https://docs.example.com"},
	}

	links := testIssue.DocLinks()
	links[0] = "modified"
	if testIssue.DocLinks()[0] != "https://docs.example.com" {
		t.Error("DocLinks() should return a clone")
	}
}
