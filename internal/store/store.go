// Package store provides SQLite persistence for analysis history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Record is one stored generation result.
type Record struct {
	Key       string // request key, see prompt.Request.Key
	Kind      string // "single" or "compare"
	EntryID   string
	OtherID   string // compare only
	Language  string
	Model     string
	Result    string // normalized JSON
	CreatedAt time.Time
}

var columns = []string{"req_key", "kind", "entry_id", "other_id", "language", "model", "result", "created_at"}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each connection to ":memory:" is its own database; pin to one so the
	// schema and rows stay visible.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		req_key TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		other_id TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		result TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_analyses_entry ON analyses(entry_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Save inserts or replaces the record with the same key.
func (s *Store) Save(ctx context.Context, r Record) error {
	if r.Key == "" {
		return errors.New("save analysis: empty key")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	query, args, err := sq.Replace("analyses").
		Columns(columns...).
		Values(r.Key, r.Kind, r.EntryID, r.OtherID, r.Language, r.Model, r.Result, r.CreatedAt.UnixMilli()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// Get returns the record for key. found is false when absent.
func (s *Store) Get(ctx context.Context, key string) (Record, bool, error) {
	query, args, err := sq.Select(columns...).From("analyses").Where(sq.Eq{"req_key": key}).ToSql()
	if err != nil {
		return Record{}, false, fmt.Errorf("build select: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.query(ctx, query, args...)
	if err != nil {
		return Record{}, false, err
	}
	if len(records) == 0 {
		return Record{}, false, nil
	}
	return records[0], true, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := sq.Select(columns...).From("analyses").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(ctx, query, args...)
}

// ForEntry returns every stored result that involves entryID, newest first.
func (s *Store) ForEntry(ctx context.Context, entryID string) ([]Record, error) {
	query, args, err := sq.Select(columns...).From("analyses").
		Where(sq.Or{sq.Eq{"entry_id": entryID}, sq.Eq{"other_id": entryID}}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(ctx, query, args...)
}

// PruneBefore deletes records created before t and returns how many went.
func (s *Store) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	query, args, err := sq.Delete("analyses").Where(sq.Lt{"created_at": t.UnixMilli()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune analyses: %w", err)
	}
	return res.RowsAffected()
}

// query executes a select and scans results into Records.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var created int64
		if err := rows.Scan(&r.Key, &r.Kind, &r.EntryID, &r.OtherID, &r.Language, &r.Model, &r.Result, &created); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}
