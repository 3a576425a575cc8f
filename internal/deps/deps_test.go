package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(EnvTranscoderPath, "")
	t.Setenv(EnvProberPath, "")

	if got := ResolveTranscoder(""); got != "ffmpeg" {
		t.Fatalf("fallback = %q", got)
	}
	if got := ResolveTranscoder("/opt/ffmpeg/bin/ffmpeg"); got != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("configured value ignored: %q", got)
	}

	t.Setenv(EnvTranscoderPath, "/usr/local/bin/ffmpeg7")
	if got := ResolveTranscoder("/opt/ffmpeg/bin/ffmpeg"); got != "/usr/local/bin/ffmpeg7" {
		t.Fatalf("environment must win: %q", got)
	}

	t.Setenv(EnvProberPath, "  ")
	if got := ResolveProber(""); got != "ffprobe" {
		t.Fatalf("blank environment must be ignored: %q", got)
	}
}

func TestCheckBinaries(t *testing.T) {
	dir := t.TempDir()

	executable := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(executable, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "not-executable")
	if err := os.WriteFile(plain, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	statuses := CheckBinaries([]Requirement{
		{Name: "Transcoder", Command: executable},
		{Name: "Missing", Command: filepath.Join(dir, "absent")},
		{Name: "Plain", Command: plain},
		{Name: "Unset", Command: "  "},
	})
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}

	if !statuses[0].Available {
		t.Fatalf("executable reported unavailable: %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("missing binary must carry detail: %+v", statuses[1])
	}
	if statuses[2].Available {
		t.Fatalf("non-executable file reported available: %+v", statuses[2])
	}
	if statuses[3].Available || statuses[3].Detail != "command not configured" {
		t.Fatalf("blank command mishandled: %+v", statuses[3])
	}
}
