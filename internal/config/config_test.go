package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
room_service:
  base_url: http://localhost:3000/api
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RoomService.BaseURL != "http://localhost:3000/api" {
		t.Errorf("base_url = %q", cfg.RoomService.BaseURL)
	}
	if cfg.RoomService.Timeout.Duration() != 30*time.Second {
		t.Errorf("timeout default = %v", cfg.RoomService.Timeout.Duration())
	}
	if cfg.RoomService.RateLimitRPS != 10.0 {
		t.Errorf("rate_limit_rps default = %v", cfg.RoomService.RateLimitRPS)
	}
	if cfg.Log.GetLevel() != "info" {
		t.Errorf("log level default = %q", cfg.Log.GetLevel())
	}
	if cfg.Database.Path != "./roomstated.sqlite" {
		t.Errorf("database path default = %q", cfg.Database.Path)
	}
	if cfg.Ledger.RetentionDays != 30 {
		t.Errorf("retention_days default = %d", cfg.Ledger.RetentionDays)
	}
	if cfg.Ledger.RetentionPeriod() != 30*24*time.Hour {
		t.Errorf("retention period = %v", cfg.Ledger.RetentionPeriod())
	}
	if cfg.API.Port != 8085 {
		t.Errorf("api port default = %d", cfg.API.Port)
	}
	if cfg.EventBus.GetWorkers() != 4 || cfg.EventBus.GetQueueSize() != 100 {
		t.Errorf("eventbus defaults = %d workers, %d queue", cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("ROOMS_TOKEN", "tok-123")

	path := writeConfig(t, `
room_service:
  base_url: ${ROOMS_URL:http://fallback:3000}
  token: ${ROOMS_TOKEN}
  timeout: 5s
resync:
  enabled: true
  interval: 90s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RoomService.BaseURL != "http://fallback:3000" {
		t.Errorf("unset env var should use default, got %q", cfg.RoomService.BaseURL)
	}
	if cfg.RoomService.Token != "tok-123" {
		t.Errorf("token = %q", cfg.RoomService.Token)
	}
	if cfg.RoomService.Timeout.Duration() != 5*time.Second {
		t.Errorf("timeout = %v", cfg.RoomService.Timeout.Duration())
	}
	if !cfg.Resync.Enabled || cfg.Resync.Interval.Duration() != 90*time.Second {
		t.Errorf("resync = %+v", cfg.Resync)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}
