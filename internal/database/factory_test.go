package database

import (
	"errors"
	"testing"

	"recall/internal/config"
	"recall/internal/database/migrations"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	t.Run("memory database is migrated", func(t *testing.T) {
		db, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() error = %v", err)
		}
		defer db.Close()

		if err := migrations.Check(db.DB()); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})

	t.Run("unmigrated sqlite file is refused", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}
		_, err := NewDatabaseFromConfig(cfg)
		if !errors.Is(err, migrations.ErrNoVersion) {
			t.Errorf("NewDatabaseFromConfig() error = %v, want ErrNoVersion", err)
		}
	})

	t.Run("migrated sqlite file opens", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir(), MaxOpenConns: 2}
		pre, err := OpenMigrated(cfg.Path(), 1)
		if err != nil {
			t.Fatalf("OpenMigrated() error = %v", err)
		}
		pre.Close()

		db, err := NewDatabaseFromConfig(cfg)
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() error = %v", err)
		}
		db.Close()
	})

	t.Run("sqlite without data_dir", func(t *testing.T) {
		if _, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "postgres"}); err == nil {
			t.Error("expected error")
		}
	})
}
