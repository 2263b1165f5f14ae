// Package storage opens the relational database and keeps its schema current.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"finmate/internal/config"
)

// Open connects to the configured backend and runs pending migrations.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBBackend {
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		if dir := filepath.Dir(cfg.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.SQLiteDBPath + "?_foreign_keys=on")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBBackend, err)
	}

	if err := RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}
