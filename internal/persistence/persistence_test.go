package persistence

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-desk/internal/config"
)

func TestMigrationNamesAreEmbedded(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) == 0 || names[0] != "migrations/001_init.sql" {
		t.Fatalf("names = %v", names)
	}
	body, err := migrationFS.ReadFile(names[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS tickets") {
		t.Fatal("init migration does not create tickets")
	}
}

func TestSQLiteOpenAndMigrate(t *testing.T) {
	logger := zap.NewNop()
	db, err := NewSQLite(config.SQLiteConfig{Path: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := AutoMigrateSQLite(db.DB, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !db.DB.Migrator().HasTable("tickets") {
		t.Fatal("tickets table missing")
	}
}

func TestNilHandlesSkipMigrations(t *testing.T) {
	logger := zap.NewNop()
	if err := RunMigrations(context.Background(), nil, logger); err != nil {
		t.Fatalf("postgres: %v", err)
	}
	if err := AutoMigrateSQLite(nil, logger); err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	var pg *Postgres
	if pg.Ping(context.Background()) == nil {
		t.Fatal("nil postgres should fail ping")
	}
}

func TestNilRedisPing(t *testing.T) {
	var r *Redis
	if r.Ping(context.Background()) == nil {
		t.Fatal("nil redis should fail ping")
	}
	r.Close()
}

func TestPoolConfig(t *testing.T) {
	if _, err := PoolConfig(config.PostgresConfig{}, "desk"); err == nil {
		t.Fatal("expected error for empty DSN")
	}

	cfg, err := PoolConfig(config.PostgresConfig{
		DSN:            "postgres://desk:pw@db.internal:5432/tickets",
		MaxConns:       7,
		ConnMaxIdleSec: 15,
	}, "grievance-desk")
	if err != nil {
		t.Fatalf("pool config: %v", err)
	}
	if cfg.MaxConns != 7 || cfg.MaxConnIdleTime != 15*time.Second {
		t.Fatalf("pool = %d %v", cfg.MaxConns, cfg.MaxConnIdleTime)
	}
	if cfg.ConnConfig.Database != "tickets" || cfg.ConnConfig.RuntimeParams["application_name"] != "grievance-desk" {
		t.Fatalf("conn config = %+v", cfg.ConnConfig.RuntimeParams)
	}
}
