package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newConfigInitCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--path", target})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if !strings.Contains(out.String(), target) {
		t.Fatalf("output does not name the target: %q", out.String())
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newConfigInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--path", target})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected refusal without --overwrite")
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# mine\n" {
		t.Fatal("existing file was clobbered")
	}
}

func TestConfigInitOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newConfigInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--path", target, "--overwrite"})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[toolchain]") {
		t.Fatal("sample content not written")
	}
}
