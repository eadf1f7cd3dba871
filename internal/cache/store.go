// Package cache persists block metadata and the fragment index of a
// workspace in sqlite, with an in-memory LRU in front of metadata lookups.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
)

var log = commonlog.GetLogger("d2frag.cache")

// DefaultSize is the number of metadata entries kept in memory.
const DefaultSize = 1024

// FileRecord is an indexed file.
type FileRecord struct {
	Path         string
	LastModified int64
}

// Fragment is one indexed block. Hash keys its metadata.
type Fragment struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Label     string `json:"label,omitempty"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Depth     int    `json:"depth"`
	Hash      string `json:"hash"`
}

// Store is the sqlite-backed fragment cache. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	recent *lru.Cache[string, analyzer.Metadata]

	mu     sync.RWMutex
	closed bool
}

// Key returns the cache key of a block's code.
func Key(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Open opens (creating if needed) the store at path. An empty path keeps
// everything in memory. size bounds the in-memory metadata cache.
func Open(path string, size int) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	if size <= 0 {
		size = DefaultSize
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: writes are serialized and ":memory:" stays one database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = WAL;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	recent, err := lru.New[string, analyzer.Metadata](size)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	log.Debugf("opened fragment cache %s", path)
	return &Store{db: db, recent: recent}, nil
}

func (s *Store) read() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	return s.mu.RUnlock, nil
}

// WithTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) WithTx(fn func(*Tx) error) error {
	done, err := s.read()
	if err != nil {
		return err
	}
	defer done()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}

// Metadata returns the metadata stored for hash.
func (s *Store) Metadata(hash string) (analyzer.Metadata, error) {
	if md, ok := s.recent.Get(hash); ok {
		return md, nil
	}

	done, err := s.read()
	if err != nil {
		return analyzer.Metadata{}, err
	}
	defer done()

	var data []byte
	err = s.db.QueryRow("SELECT data FROM metadata WHERE hash = ?", hash).Scan(&data)
	if err == sql.ErrNoRows {
		return analyzer.Metadata{}, ErrNotFound
	}
	if err != nil {
		return analyzer.Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}

	var md analyzer.Metadata
	if err := msgpack.Unmarshal(data, &md); err != nil {
		return analyzer.Metadata{}, fmt.Errorf("failed to decode metadata %s: %w", hash, err)
	}
	s.recent.Add(hash, md)
	return md, nil
}

// PutMetadata stores md under hash.
func (s *Store) PutMetadata(hash string, md analyzer.Metadata) error {
	if err := s.WithTx(func(tx *Tx) error {
		return tx.PutMetadata(hash, md)
	}); err != nil {
		return err
	}
	s.recent.Add(hash, md)
	return nil
}

// File returns the record of an indexed file.
func (s *Store) File(path string) (FileRecord, error) {
	done, err := s.read()
	if err != nil {
		return FileRecord{}, err
	}
	defer done()

	var record FileRecord
	err = s.db.QueryRow(
		"SELECT path, last_modified FROM files WHERE path = ?",
		path,
	).Scan(&record.Path, &record.LastModified)
	if err == sql.ErrNoRows {
		return FileRecord{}, ErrNotFound
	}
	if err != nil {
		return FileRecord{}, fmt.Errorf("failed to query file: %w", err)
	}
	return record, nil
}

// Files returns every indexed file.
func (s *Store) Files() ([]FileRecord, error) {
	done, err := s.read()
	if err != nil {
		return nil, err
	}
	defer done()

	rows, err := s.db.Query("SELECT path, last_modified FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var record FileRecord
		if err := rows.Scan(&record.Path, &record.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file records: %w", err)
	}
	return records, nil
}

// ReplaceFile records file and replaces all of its fragments in one
// transaction. metas holds metadata for hashes not yet stored.
func (s *Store) ReplaceFile(file FileRecord, fragments []Fragment, metas map[string]analyzer.Metadata) error {
	err := s.WithTx(func(tx *Tx) error {
		if err := tx.UpsertFile(file); err != nil {
			return err
		}
		for hash, md := range metas {
			if err := tx.PutMetadata(hash, md); err != nil {
				return err
			}
		}
		return tx.ReplaceFragments(file.Path, fragments)
	})
	if err != nil {
		return err
	}
	for hash, md := range metas {
		s.recent.Add(hash, md)
	}
	log.Debugf("indexed %d fragments of %s", len(fragments), file.Path)
	return nil
}

// DeleteFile removes a file and its fragments.
func (s *Store) DeleteFile(path string) error {
	return s.WithTx(func(tx *Tx) error {
		if err := tx.ReplaceFragments(path, nil); err != nil {
			return err
		}
		result, err := tx.tx.Exec("DELETE FROM files WHERE path = ?", path)
		if err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Fragments returns the fragments of one file in index order.
func (s *Store) Fragments(path string) ([]Fragment, error) {
	done, err := s.read()
	if err != nil {
		return nil, err
	}
	defer done()

	rows, err := s.db.Query(`
        SELECT path, name, label, start_line, end_line, depth, hash
        FROM fragments
        WHERE path = ?
        ORDER BY id
    `, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer rows.Close()
	return scanFragments(rows)
}

// Search returns fragments whose name or label contains query, ignoring
// case. A limit <= 0 returns every match.
func (s *Store) Search(query string, limit int) ([]Fragment, error) {
	done, err := s.read()
	if err != nil {
		return nil, err
	}
	defer done()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
        SELECT path, name, label, start_line, end_line, depth, hash
        FROM fragments
        WHERE instr(lower(name), lower(?1)) > 0 OR instr(lower(label), lower(?1)) > 0
        ORDER BY path, id
        LIMIT ?2
    `, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search fragments: %w", err)
	}
	defer rows.Close()
	return scanFragments(rows)
}

// Close closes the database. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.recent.Purge()
	return s.db.Close()
}

func scanFragments(rows *sql.Rows) ([]Fragment, error) {
	var fragments []Fragment
	for rows.Next() {
		var f Fragment
		if err := rows.Scan(&f.Path, &f.Name, &f.Label, &f.StartLine, &f.EndLine, &f.Depth, &f.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		fragments = append(fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fragments: %w", err)
	}
	return fragments, nil
}
