package storage

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"finmate/internal/config"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations applies pending schema migrations. It opens a separate
// connection so migration locking never interferes with the main pool.
func RunMigrations(cfg *config.Config) error {
	var (
		migrateDB *sql.DB
		driver    database.Driver
		dir       string
		err       error
	)

	switch cfg.DBBackend {
	case "postgres":
		migrateDB, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open migration database: %w", err)
		}
		defer migrateDB.Close()
		driver, err = pgxmigrate.WithInstance(migrateDB, &pgxmigrate.Config{})
		if err != nil {
			return fmt.Errorf("create pgx driver: %w", err)
		}
		dir = "migrations/postgres"
	default:
		migrateDB, err = sql.Open("sqlite3", cfg.SQLiteDBPath)
		if err != nil {
			return fmt.Errorf("open migration database: %w", err)
		}
		defer migrateDB.Close()
		driver, err = sqlitemigrate.WithInstance(migrateDB, &sqlitemigrate.Config{})
		if err != nil {
			return fmt.Errorf("create sqlite driver: %w", err)
		}
		dir = "migrations/sqlite"
	}

	d, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, cfg.DBBackend, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
