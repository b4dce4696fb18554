package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pakreq.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
addr: ":9090"
base_url: "https://pakreq.example.org"
database_path: "/var/lib/pakreq/pakreq.db"
password_pepper: "pepper"
telegram_token: "123:abc"
package_index_url: "https://packages.example.org"
daemon_interval: 5m
jwt_secret: "sekrit"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.BaseURL != "https://pakreq.example.org" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.DaemonInterval != 5*time.Minute {
		t.Errorf("DaemonInterval = %v", cfg.DaemonInterval)
	}
	if cfg.JWTSecret != "sekrit" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
base_url: "https://pakreq.example.org"
database_path: "pakreq.db"
password_pepper: "pepper"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("default Addr = %q", cfg.Addr)
	}
	if cfg.DaemonInterval != 1800*time.Second {
		t.Errorf("default DaemonInterval = %v", cfg.DaemonInterval)
	}
	if cfg.PackageIndexURL == "" {
		t.Errorf("default PackageIndexURL is empty")
	}
	if cfg.StaticDir != "static" {
		t.Errorf("default StaticDir = %q", cfg.StaticDir)
	}
}

func TestLoadMissingRequiredKey(t *testing.T) {
	path := writeConfig(t, `
base_url: "https://pakreq.example.org"
database_path: "pakreq.db"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation failure without password_pepper")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	path := writeConfig(t, `
base_url: "https://pakreq.example.org"
database_path: "pakreq.db"
password_pepper: "pepper"
daemon_interval: -1s
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for negative daemon_interval")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("PAKREQ_BASE_URL", "https://env.example.org")
	t.Setenv("PAKREQ_DATABASE_PATH", "env.db")
	t.Setenv("PAKREQ_PASSWORD_PEPPER", "env-pepper")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BaseURL != "https://env.example.org" || cfg.DatabasePath != "env.db" {
		t.Fatalf("env values not applied: %#v", cfg)
	}
}
