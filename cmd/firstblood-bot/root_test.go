package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "firstblood-bot dev") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunRejectsIncompleteConfig(t *testing.T) {
	for _, env := range []string{"DISCORD_TOKEN", "CHANNEL_ID", "SUPABASE_URL", "SUPABASE_KEY"} {
		t.Setenv(env, "")
	}
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--once"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "DISCORD_TOKEN") {
		t.Fatalf("run error = %v, want missing token", err)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yml")
	if err := os.WriteFile(path, []byte("poll:\n  interval: 15s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("POLL_INTERVAL", "")

	root, v := newRoot()
	if err := root.PersistentFlags().Set("config", path); err != nil {
		t.Fatal(err)
	}
	if err := root.PersistentFlags().Set("log-level", "debug"); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Poll.Interval != 15*time.Second {
		t.Errorf("Poll.Interval = %s, want 15s from file", cfg.Poll.Interval)
	}
	if cfg.Backend.URL != "https://example.supabase.co" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want flag value", cfg.Logging.Level)
	}
}
