package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Addr != ":8080" || cfg.SendRateLimit != 120 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	// The default file was written for the next run.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config written: %v", err)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9090\"\nlog_level: debug\nsuper_admins:\n  - root@example.com\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("expected addr from file, got %q", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level from file, got %q", cfg.LogLevel)
	}
	if len(cfg.SuperAdmins) != 1 || cfg.SuperAdmins[0] != "root@example.com" {
		t.Fatalf("expected super admins from file, got %v", cfg.SuperAdmins)
	}
	// Unset keys keep their defaults.
	if cfg.DatabasePath != "pollchat.db" {
		t.Fatalf("expected default db path, got %q", cfg.DatabasePath)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POLLCHAT_ADDR", ":7070")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("expected env override, got %q", cfg.Addr)
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":9999", ShutdownTimeout: 30 * time.Second})

	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr overridden, got %q", cfg.Addr)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Fatalf("expected shutdown timeout overridden, got %v", cfg.ShutdownTimeout)
	}
	// Zero values leave the receiver untouched.
	if cfg.DatabasePath != "pollchat.db" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected clobbering: %+v", cfg)
	}
}
