package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/inkline-labs/inkline/internal/blame"
	"github.com/inkline-labs/inkline/internal/notes"
	"github.com/inkline-labs/inkline/internal/users"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
// The pool is capped at a single connection so writes serialize; the blame
// store's SQLite dialect depends on that.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := initSchema(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized",
			zap.String("driver", "sqlite"),
			zap.String("path", path))
	}

	return db, nil
}

// OpenPostgres establishes a Postgres connection and performs schema migrations.
func OpenPostgres(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := initSchema(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", "postgres"))
	}

	return db, nil
}

func initSchema(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(
		&notes.Note{},
		&blame.Revision{},
		&blame.BlameRow{},
		&users.Profile{},
		&migrationRecord{},
	); err != nil {
		return err
	}
	return applyMigrations(db, logger)
}
