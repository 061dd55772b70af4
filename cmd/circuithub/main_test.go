package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("CIRCUITHUB_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingJWTSecret verifies run fails config validation when no
// signing secret is configured.
func TestRun_MissingJWTSecret(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"
  wal_mode: true
  busy_timeout: 5

logging:
  level: error
  format: text
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	t.Setenv("CIRCUITHUB_CONFIG", configPath)
	t.Setenv("CIRCUITHUB_JWT_SECRET", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without a JWT secret")
	}
	if !strings.Contains(err.Error(), "validating config") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CIRCUITHUB_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("default path = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("CIRCUITHUB_CONFIG", "/etc/circuithub/config.yaml")
	if got := getConfigPath(); got != "/etc/circuithub/config.yaml" {
		t.Errorf("env path = %q", got)
	}
}
