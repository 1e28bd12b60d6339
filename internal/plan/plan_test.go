// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validPlan = `
image: {
	path:  "/images/base.img"
	index: 2
}
runtime: {
	name:        "agent"
	version:     "7.3.4"
	url:         "https://pkg.example.com/agent-7.3.4.tar.gz"
	sha256:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	install_dir: "opt/agent"
}
copies: [{source: "/srv/payload/conf", dest: "opt/agent/conf"}]
files: [{source: "/srv/payload/agent.lic", dest: "opt/agent/agent.lic"}]
hive_edits: [{hive: "config/system.hive", key: "Services\\Agent", name: "Start", value: "2"}]
startup_script: "etc/startup.sh"
startup_commands: ["/opt/agent/bin/agent --daemon"]
`

func TestParse_ValidPlan(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(validPlan), "plan.cue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Image.Path != "/images/base.img" || p.Image.Index != 2 {
		t.Errorf("image ref decoded wrong: %+v", p.Image)
	}
	if p.Runtime == nil || p.Runtime.Name != "agent" || p.Runtime.Version != "7.3.4" {
		t.Errorf("runtime decoded wrong: %+v", p.Runtime)
	}
	if p.Runtime.Ext != ".tar.gz" {
		t.Errorf("ext default not applied: %q", p.Runtime.Ext)
	}
	if len(p.Copies) != 1 || p.Copies[0].Dest != "opt/agent/conf" {
		t.Errorf("copies decoded wrong: %+v", p.Copies)
	}
	if len(p.HiveEdits) != 1 || p.HiveEdits[0].Key != `Services\Agent` {
		t.Errorf("hive edits decoded wrong: %+v", p.HiveEdits)
	}
}

func TestParse_MinimalPlan(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`image: path: "/images/base.img"`), "plan.cue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Image.Index != 1 {
		t.Errorf("index default not applied: %d", p.Image.Index)
	}
	if p.Runtime != nil {
		t.Errorf("runtime should be absent: %+v", p.Runtime)
	}
	if len(p.Copies) != 0 || len(p.StartupCommands) != 0 {
		t.Errorf("list defaults not applied: %+v", p)
	}
}

func TestParse_LocalRuntime(t *testing.T) {
	t.Parallel()

	data := `
image: path: "/images/base.img"
runtime: {
	name:        "agent"
	version:     "7.3.4"
	local_path:  "/srv/payload/agent-7.3.4.tar.gz"
	install_dir: "opt/agent"
}
`
	p, err := Parse([]byte(data), "plan.cue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Runtime.LocalPath == "" || p.Runtime.URL != "" {
		t.Errorf("local runtime decoded wrong: %+v", p.Runtime)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "missing image path",
			data: `image: index: 1`,
			want: "image",
		},
		{
			name: "zero image index",
			data: `image: {path: "/images/base.img", index: 0}`,
			want: "index",
		},
		{
			name: "bad runtime version",
			data: `
image: path: "/i.img"
runtime: {name: "agent", version: "latest", url: "https://x/a.tgz", sha256: "` + strings.Repeat("a", 64) + `", install_dir: "opt"}`,
			want: "version",
		},
		{
			name: "runtime with neither url nor local_path",
			data: `
image: path: "/i.img"
runtime: {name: "agent", version: "1.2.3", install_dir: "opt"}`,
			want: "runtime",
		},
		{
			name: "startup commands without script",
			data: `
image: path: "/i.img"
startup_commands: ["/opt/agent/bin/agent"]`,
			want: "startup_script",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data), "plan.cue")
			if !errors.Is(err, ErrInvalidPlan) {
				t.Fatalf("expected ErrInvalidPlan, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_ReadsFromDisk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plan.cue")
	if err := os.WriteFile(path, []byte(validPlan), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Image.Path != "/images/base.img" {
		t.Errorf("loaded plan wrong: %+v", p.Image)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	if err == nil || errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected read error, got: %v", err)
	}
}
