// Package automigrate brings the task board schema up to date when the
// server starts, so a fresh deploy needs no separate migration step.
//
// It shares the migrations directory and the integer-versioned
// schema_migrations table with cmd/migrate, and tolerates objects the CLI
// already created by recording those versions instead of failing.
package automigrate

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Run applies every pending up migration from the given directory in
// version order.
func Run(db *sql.DB, migrationsDir string) error {
	// Integer versions keep the table compatible with cmd/migrate.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	type migration struct {
		name    string
		version int
	}
	var pending []migration
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		// The version is the numeric prefix, "006" in 006_rls_policies.up.sql.
		parts := strings.SplitN(name, "_", 2)
		if len(parts) == 0 {
			continue
		}
		ver, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		if !applied[ver] {
			pending = append(pending, migration{name: name, version: ver})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	if len(pending) == 0 {
		log.Printf("Schema up to date, %d migrations applied", len(applied))
		return nil
	}

	log.Printf("Applying %d pending migration(s)", len(pending))
	for _, m := range pending {
		name := m.name
		version := m.version
		path := filepath.Join(migrationsDir, name)
		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", name, err)
		}

		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			// Objects the CLI already created are recorded, not fatal.
			errStr := err.Error()
			if strings.Contains(errStr, "already exists") || strings.Contains(errStr, "duplicate key") {
				log.Printf("Migration %d already applied, recording version", version)
				db.Exec("INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING", version)
				continue
			}
			return fmt.Errorf("apply %s: %w", name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}

		log.Printf("Applied migration %d (%s)", version, name)
	}

	log.Printf("Migrations complete, %d new, %d total", len(pending), len(applied)+len(pending))
	return nil
}
