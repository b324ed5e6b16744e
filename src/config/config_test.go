package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openecglab/ECGAnnotator/src/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Paths.DataDir != "" {
		t.Fatalf("data dir should default to unset, got %q", cfg.Paths.DataDir)
	}
	if !filepath.IsAbs(cfg.Paths.AnnotationsFile) || filepath.Base(cfg.Paths.AnnotationsFile) != "annotations.csv" {
		t.Fatalf("unexpected annotations file: %q", cfg.Paths.AnnotationsFile)
	}
	if filepath.Base(cfg.Paths.AuditFile) != "annotations_audit.jsonl" {
		t.Fatalf("unexpected audit file: %q", cfg.Paths.AuditFile)
	}
	if cfg.Display.Seconds != 10.0 {
		t.Fatalf("unexpected display seconds: %v", cfg.Display.Seconds)
	}
	if cfg.Display.MaxPointsPerLead != 4000 {
		t.Fatalf("unexpected max points: %d", cfg.Display.MaxPointsPerLead)
	}
	if cfg.Watch.Enabled {
		t.Fatal("expected watching disabled by default")
	}
	if cfg.WatchDebounce().Milliseconds() != 500 {
		t.Fatalf("unexpected debounce: %v", cfg.WatchDebounce())
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %q", cfg.Log.Level)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	path := filepath.Join(dir, "ecg.toml")
	body := `
[paths]
data_dir = "~/ecg_data"
annotations_file = "` + filepath.ToSlash(filepath.Join(dir, "labels.csv")) + `"

[display]
seconds = 7.5

[watch]
enabled = true
debounce_ms = 250

[log]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(home, "ecg_data") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.AuditFile != filepath.Join(dir, "labels_audit.jsonl") {
		t.Fatalf("audit file not derived from annotations stem: %q", cfg.Paths.AuditFile)
	}
	if cfg.Display.Seconds != 7.5 {
		t.Fatalf("unexpected seconds: %v", cfg.Display.Seconds)
	}
	if !cfg.Watch.Enabled || cfg.Watch.DebounceMS != 250 {
		t.Fatalf("unexpected watch settings: %+v", cfg.Watch)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level should be lowercased, got %q", cfg.Log.Level)
	}
	if cfg.Display.MaxPointsPerLead != 4000 {
		t.Fatalf("unset keys should keep defaults, got %d", cfg.Display.MaxPointsPerLead)
	}
}

func TestLoadExplicitMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("missing explicit file must report exists=false")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Display.Seconds != 10.0 {
		t.Fatalf("expected defaults, got %+v", cfg.Display)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero seconds", "[display]\nseconds = 0.0\n", "display.seconds"},
		{"huge seconds", "[display]\nseconds = 600.0\n", "display.seconds"},
		{"tiny max points", "[display]\nmax_points_per_lead = 10\n", "max_points_per_lead"},
		{"negative debounce", "[watch]\ndebounce_ms = -5\n", "debounce_ms"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"bad toml", "display = nonsense\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ecg.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("Load accepted bad config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Display.Seconds != 10.0 || cfg.Log.Level != "info" {
		t.Fatalf("sample should encode the defaults, got %+v", cfg)
	}
}
