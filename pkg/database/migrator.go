package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

// Migrator applies the embedded migrations in file name order. Applied
// files are recorded so a migration never runs twice.
type Migrator struct {
	db *DB
	fs fs.FS
}

func NewMigrator(db *DB) *Migrator {
	return &Migrator{db: db, fs: migrationsFS}
}

// Run applies pending migrations and returns the names of those applied.
func (m *Migrator) Run(ctx context.Context) ([]string, error) {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", migrationsTable, err)
	}

	files, err := migrationFiles(m.fs)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration files: %w", err)
	}

	var applied []string
	for _, file := range files {
		done, err := m.isApplied(ctx, file)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}
		if err := m.executeMigration(ctx, file); err != nil {
			return applied, fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
		applied = append(applied, file)
	}

	return applied, nil
}

func (m *Migrator) isApplied(ctx context.Context, file string) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+migrationsTable+` WHERE name = $1)`, file,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", file, err)
	}
	return exists, nil
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func (m *Migrator) executeMigration(ctx context.Context, filename string) error {
	content, err := fs.ReadFile(m.fs, "migrations/"+filename)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	logger.Infof("Executing migration: %s", filename)

	return m.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO `+migrationsTable+` (name) VALUES ($1)`, filename)
		return err
	})
}
