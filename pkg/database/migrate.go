package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "schema_migrations"

// Migrate applies every embedded migration not yet recorded in schema_migrations, in file name order.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) ([]string, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	filename TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return nil, fmt.Errorf("ensure migration table %s: %w", migrationsTable, err)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list embedded migrations: %w", err)
	}
	sort.Strings(names)

	applied := make([]string, 0, len(names))
	for _, name := range names {
		var exists bool
		if err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)`, name); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", name, err)
		}
		if exists {
			continue
		}

		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}

		err = WithTx(ctx, db, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			if !isIgnorableMigrationError(err) {
				return applied, fmt.Errorf("apply migration %s: %w", name, err)
			}
			logger.Warn("migration objects already exist, marking applied", zap.String("migration", name), zap.Error(err))
			if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1) ON CONFLICT (filename) DO NOTHING`, name); err != nil {
				return applied, fmt.Errorf("record migration %s: %w", name, err)
			}
		}
		logger.Info("migration applied", zap.String("migration", name))
		applied = append(applied, name)
	}

	return applied, nil
}

func isIgnorableMigrationError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "42P07", // duplicate_table
		"42710", // duplicate_object
		"42P06", // duplicate_schema
		"42701": // duplicate_column
		return true
	default:
		return false
	}
}
