package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/cases"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	changes *broker

	mu        sync.Mutex
	entropy   *ulid.MonotonicEntropy
	now       func() time.Time
	lastStamp int64
}

var _ Store = (*SQLiteStore)(nil)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		changes: newBroker(),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Now returns the store clock.
func (s *SQLiteStore) Now() time.Time { return s.now() }

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// stamp returns the current time in milliseconds, never earlier than a
// previously returned stamp.
func (s *SQLiteStore) stamp() int64 {
	return s.stampAfter(0)
}

// stampAfter returns a stamp strictly greater than prev.
func (s *SQLiteStore) stampAfter(prev int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := max(s.now().UnixMilli(), s.lastStamp)
	if ms <= prev {
		ms = prev + 1
	}
	s.lastStamp = ms
	return ms
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		id               TEXT PRIMARY KEY,
		type             TEXT NOT NULL,
		title            TEXT NOT NULL,
		description      TEXT,
		category         TEXT,
		metadata         TEXT,
		status           TEXT,
		duration_seconds REAL,
		session_key      TEXT,
		timestamp        INTEGER NOT NULL,
		fold_title       TEXT NOT NULL DEFAULT '',
		fold_description TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_activities_timestamp ON activities(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(type, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_activities_category ON activities(category, timestamp DESC);

	CREATE TABLE IF NOT EXISTS scheduled_tasks (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		description      TEXT,
		scheduled_for    INTEGER NOT NULL,
		recurrence       TEXT NOT NULL DEFAULT 'once',
		status           TEXT NOT NULL DEFAULT 'pending',
		category         TEXT,
		priority         TEXT,
		source           TEXT,
		metadata         TEXT,
		created_at       INTEGER NOT NULL,
		completed_at     INTEGER,
		fold_title       TEXT NOT NULL DEFAULT '',
		fold_description TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_scheduled ON scheduled_tasks(scheduled_for);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON scheduled_tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON scheduled_tasks(created_at DESC);

	CREATE TABLE IF NOT EXISTS memories (
		id           TEXT PRIMARY KEY,
		content      TEXT NOT NULL,
		type         TEXT NOT NULL,
		category     TEXT,
		source       TEXT,
		importance   INTEGER,
		tags         TEXT,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL,
		fold_content TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_memories_updated ON memories(updated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type, updated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category, updated_at DESC);

	CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		path          TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		content       TEXT NOT NULL,
		type          TEXT NOT NULL,
		last_modified INTEGER NOT NULL,
		size          INTEGER,
		fold_content  TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_documents_modified ON documents(last_modified DESC);
	CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(type, last_modified DESC);

	CREATE TABLE IF NOT EXISTS document_chunks (
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		text        TEXT NOT NULL,
		start_line  INTEGER,
		end_line    INTEGER,
		PRIMARY KEY (document_id, seq)
	);

	CREATE TABLE IF NOT EXISTS searches (
		id           TEXT PRIMARY KEY,
		query        TEXT NOT NULL,
		result_count INTEGER NOT NULL DEFAULT 0,
		timestamp    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_searches_timestamp ON searches(timestamp DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// fold returns the case-folded form used by substring search.
func fold(s string) string {
	return cases.Fold().String(s)
}

// likePattern builds a LIKE pattern matching query as a folded substring.
// Use with ESCAPE '\'.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(fold(query)) + "%"
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func encodeJSON(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 0 {
			return nil, nil
		}
	case []string:
		if len(x) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeMetadata(ns sql.NullString) map[string]any {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil
	}
	return m
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

// affected converts a zero-row update or delete into ErrNotFound.
func affected(res sql.Result, kind, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return notFound(kind, key)
	}
	return nil
}

// inserted reports whether an INSERT OR IGNORE wrote a row.
func inserted(op string, res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable(op, err)
	}
	return n > 0, nil
}
