package database

import (
	"fmt"
	"os"

	"recall/internal/config"
	"recall/internal/database/migrations"
)

// NewDatabaseFromConfig opens the database described by cfg. A file database
// must already be at the latest schema version; an in-memory one is migrated
// on open since it starts empty every time.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		db, err := NewSQLiteDatabase(cfg.Path(), cfg.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		if err := migrations.Check(db.DB()); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case "memory":
		return OpenMigrated(MemoryPath, 1)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// OpenMigrated opens path and applies any pending migrations.
func OpenMigrated(path string, maxOpen int) (*SQLiteDatabase, error) {
	db, err := NewSQLiteDatabase(path, maxOpen)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db.DB()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
