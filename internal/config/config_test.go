package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.BackupDir != "backups" {
		t.Errorf("expected default backup dir, got %s", cfg.BackupDir)
	}
	if cfg.InactiveCutoffDays != 180 {
		t.Errorf("expected default inactive cutoff 180, got %d", cfg.InactiveCutoffDays)
	}
	if cfg.DashboardCacheTTL != 30*time.Second {
		t.Errorf("expected default cache TTL 30s, got %s", cfg.DashboardCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/clinic")
	t.Setenv("INACTIVE_CUTOFF_DAYS", "90")
	t.Setenv("DASHBOARD_CACHE_TTL", "2m")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://localhost/clinic" {
		t.Errorf("unexpected database url %s", cfg.DatabaseURL)
	}
	if cfg.InactiveCutoffDays != 90 {
		t.Errorf("expected cutoff 90, got %d", cfg.InactiveCutoffDays)
	}
	if cfg.DashboardCacheTTL != 2*time.Minute {
		t.Errorf("expected TTL 2m, got %s", cfg.DashboardCacheTTL)
	}
	if !cfg.RedisTLS {
		t.Error("expected redis TLS enabled")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("INACTIVE_CUTOFF_DAYS", "not-a-number")
	t.Setenv("DASHBOARD_CACHE_TTL", "soon")

	cfg := Load()

	if cfg.InactiveCutoffDays != 180 {
		t.Errorf("expected fallback cutoff 180, got %d", cfg.InactiveCutoffDays)
	}
	if cfg.DashboardCacheTTL != 30*time.Second {
		t.Errorf("expected fallback TTL 30s, got %s", cfg.DashboardCacheTTL)
	}
}
