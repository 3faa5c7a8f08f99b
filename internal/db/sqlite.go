package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the domain map database and creates its schema.
// Pass ":memory:" for a private in-memory database.
func InitDB(file string) (*sqlx.DB, error) {
	if file != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Foreign keys are enabled through the DSN so every pooled connection has them.
	db, err := sqlx.Open("sqlite3", file+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives as long as its one connection.
	if file == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := createDomainsTable(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create domains table: %w", err)
	}

	if err := createDomainPluginsTable(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create domain_plugins table: %w", err)
	}

	return db, nil
}

func createDomainsTable(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS domains (
		domain TEXT PRIMARY KEY,
		host TEXT NOT NULL DEFAULT '',
		username_style TEXT NOT NULL DEFAULT '',
		smtp_host TEXT NOT NULL DEFAULT '',
		sieve_host TEXT NOT NULL DEFAULT '',
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

func createDomainPluginsTable(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS domain_plugins (
		domain TEXT NOT NULL REFERENCES domains(domain) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		plugin TEXT NOT NULL,
		PRIMARY KEY (domain, position)
	);
	`
	_, err := db.Exec(schema)
	return err
}
