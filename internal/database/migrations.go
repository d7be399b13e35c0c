package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// RunMigrations executes the SQL migration files in the dialect's
// subdirectory of migrationsPath (e.g. migrations/sqlite) in name order.
// Each file and its bookkeeping row commit together, so a failed file is
// retried on the next start.
func (db *DB) RunMigrations(migrationsPath string) error {
	if _, err := db.Exec(db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(migrationsPath, db.Dialect.MigrationsSubdir(), "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migration files for %s under %s", db.Dialect.MigrationsSubdir(), migrationsPath)
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)

		hasRun, err := db.hasMigrationRun(filename)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		if err := db.applyMigration(filename, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		log.Printf("Migration completed: %s", filename)
		applied++
	}

	log.Printf("Migrations: %d applied, %d already up to date", applied, len(files)-applied)
	return nil
}

// hasMigrationRun checks if a migration has already been executed
func (db *DB) hasMigrationRun(filename string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE filename = ?", filename).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyMigration runs a migration file and records it in one transaction.
// The whole file runs as one Exec; every supported driver accepts multiple
// statements (MySQL through multiStatements=true in the DSN). MySQL commits
// DDL implicitly, so there only the bookkeeping row is transactional.
func (db *DB) applyMigration(filename, content string) error {
	return db.WithTx(func(tx *Tx) error {
		if _, err := tx.Tx.Exec(content); err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO migrations (filename) VALUES (?)", filename); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}
