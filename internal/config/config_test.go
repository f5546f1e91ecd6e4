package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("REALTIME_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != StoreBackendMemory {
		t.Fatalf("backend = %q", cfg.Store.Backend)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("port = %q", cfg.App.Port)
	}
	if cfg.Realtime.Enabled || cfg.Realtime.Channel == "" {
		t.Fatalf("realtime = %+v", cfg.Realtime)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadPostgresNeedsDSN(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DSN")
	}

	t.Setenv("POSTGRES_DSN", "postgres://localhost/tickets")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != StoreBackendPostgres {
		t.Fatalf("backend = %q", cfg.Store.Backend)
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("REALTIME_ENABLED", "yes please")
	t.Setenv("STORE_BACKEND", "SQLite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.RequestTimeout() != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.App.RequestTimeout())
	}
	if cfg.Realtime.Enabled {
		t.Fatal("unparseable bool should fall back to false")
	}
	if cfg.Store.Backend != StoreBackendSQLite {
		t.Fatalf("backend = %q", cfg.Store.Backend)
	}
}
