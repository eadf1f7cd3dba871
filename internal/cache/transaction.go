package cache

import (
	"database/sql"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
)

// Tx is a write transaction on a Store.
type Tx struct {
	tx *sql.Tx
}

func (tx *Tx) UpsertFile(file FileRecord) error {
	_, err := tx.tx.Exec(`
        INSERT INTO files (path, last_modified)
        VALUES (?, ?)
        ON CONFLICT(path) DO UPDATE SET
            last_modified = excluded.last_modified
    `, file.Path, file.LastModified)
	if err != nil {
		return fmt.Errorf("failed to upsert file in transaction: %w", err)
	}
	return nil
}

func (tx *Tx) PutMetadata(hash string, md analyzer.Metadata) error {
	data, err := msgpack.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to encode metadata %s: %w", hash, err)
	}
	_, err = tx.tx.Exec(`
        INSERT INTO metadata (hash, data)
        VALUES (?, ?)
        ON CONFLICT(hash) DO UPDATE SET data = excluded.data
    `, hash, data)
	if err != nil {
		return fmt.Errorf("failed to store metadata in transaction: %w", err)
	}
	return nil
}

// ReplaceFragments deletes the fragments of path and inserts fragments.
// The file must already be recorded.
func (tx *Tx) ReplaceFragments(path string, fragments []Fragment) error {
	if _, err := tx.tx.Exec("DELETE FROM fragments WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to delete existing fragments: %w", err)
	}
	if len(fragments) == 0 {
		return nil
	}

	stmt, err := tx.tx.Prepare(`
        INSERT INTO fragments (path, name, label, start_line, end_line, depth, hash)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare fragment insert statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range fragments {
		if _, err := stmt.Exec(path, f.Name, f.Label, f.StartLine, f.EndLine, f.Depth, f.Hash); err != nil {
			return fmt.Errorf("failed to insert fragment %s: %w", f.Name, err)
		}
	}
	return nil
}
