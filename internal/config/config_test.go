package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("file does not exist, exists must be false")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Split.Codec != "mp3" || cfg.Merge.Strategy != "copy" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
work_dir = "` + filepath.Join(dir, "scratch") + `"

[split]
codec = "AAC"
quality = "192k"
extension = ".m4a"
max_parallel = 4

[merge]
strategy = "Reencode"
crf = "18"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("exists must be true")
	}
	if cfg.Split.Codec != "aac" {
		t.Fatalf("codec not lowered: %q", cfg.Split.Codec)
	}
	if cfg.Split.Extension != "m4a" {
		t.Fatalf("extension dot not stripped: %q", cfg.Split.Extension)
	}
	if cfg.Split.MaxParallel != 4 {
		t.Fatalf("max_parallel = %d", cfg.Split.MaxParallel)
	}
	if cfg.Merge.Strategy != "reencode" {
		t.Fatalf("strategy not lowered: %q", cfg.Merge.Strategy)
	}
	if cfg.Merge.CRF != "18" {
		t.Fatalf("crf = %q", cfg.Merge.CRF)
	}
	// Untouched sections keep their defaults.
	if cfg.Workspace.StaleAfterMinutes != 120 {
		t.Fatalf("stale_after_minutes = %d", cfg.Workspace.StaleAfterMinutes)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		detail  string
	}{
		{"bad codec", "[split]\ncodec = \"flac\"\n", "split.codec"},
		{"bad strategy", "[merge]\nstrategy = \"smart\"\n", "merge.strategy"},
		{"bad parallelism", "[split]\nmax_parallel = 0\n", "max_parallel"},
		{"bad log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, _, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.detail) {
				t.Fatalf("expected %s error, got %v", tc.detail, err)
			}
		})
	}
}

func TestExpandPathResolvesHome(t *testing.T) {
	got, err := ExpandPath("~/media")
	if err != nil {
		t.Fatal(err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "media") {
		t.Fatalf("ExpandPath = %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s not created: %v", dir, err)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config must load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("sample config not detected")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config must validate: %v", err)
	}
}
