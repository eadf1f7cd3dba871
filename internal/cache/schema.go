package cache

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}
	log.Infof("migrating fragment cache schema %d -> %d", version, schemaVersion)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createTables(tx, version); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

func createTables(tx *sql.Tx, from int) error {
	var queries []string
	if from != 0 {
		// unknown layout: the cache is derived data, rebuild it
		queries = append(queries,
			`DROP TABLE IF EXISTS fragments`,
			`DROP TABLE IF EXISTS metadata`,
			`DROP TABLE IF EXISTS files`,
		)
	}
	queries = append(queries,
		// Indexed diagram files; last_modified lets a reindex skip unchanged files.
		`CREATE TABLE IF NOT EXISTS files (
            path TEXT PRIMARY KEY,
            last_modified INTEGER NOT NULL
        )`,

		// Block metadata keyed by the SHA-256 of the block's code, msgpack encoded.
		// Shared by every fragment with identical code.
		`CREATE TABLE IF NOT EXISTS metadata (
            hash TEXT PRIMARY KEY,
            data BLOB NOT NULL
        )`,

		// One row per block of an indexed file, in depth-first order.
		`CREATE TABLE IF NOT EXISTS fragments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            path TEXT NOT NULL,
            name TEXT NOT NULL,
            label TEXT NOT NULL DEFAULT '',
            start_line INTEGER NOT NULL,
            end_line INTEGER NOT NULL,
            depth INTEGER NOT NULL,
            hash TEXT NOT NULL,
            FOREIGN KEY (path) REFERENCES files(path) ON DELETE CASCADE
        )`,

		`CREATE INDEX IF NOT EXISTS idx_fragments_path ON fragments(path)`,
		`CREATE INDEX IF NOT EXISTS idx_fragments_name ON fragments(name COLLATE NOCASE)`,
	)

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}
	return nil
}
