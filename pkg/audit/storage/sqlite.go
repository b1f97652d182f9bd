package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/sovereign/pkg/audit"
)

const backendSQLite = "sqlite"

// SQLiteConfig configures the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage on SQLite.
type SQLiteStorage struct {
	db        *sql.DB
	config    *SQLiteConfig
	mu        sync.Mutex
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewSQLiteStorage opens the database and applies the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, audit.NewStorageError(backendSQLite, "open", errors.New("database path is required"))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStorage{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError(backendSQLite, "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return audit.NewStorageError(backendSQLite, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError(backendSQLite, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Append inserts entry and sets its sequence from the row ID.
func (s *SQLiteStorage) Append(ctx context.Context, entry *audit.Entry) error {
	meta, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "append", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO audit_entries
		(id, timestamp, actor, tenant_id, action, target, outcome, success, reason, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UnixNano(), entry.Actor, entry.TenantID,
		string(entry.Action), entry.Target, string(entry.Outcome), entry.Success,
		entry.Reason, meta,
	)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "append", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return audit.NewStorageError(backendSQLite, "append", err)
	}
	entry.Sequence = seq
	return nil
}

// Query returns matching entries, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Entry, error) {
	stmt, args := s.selectStatement(query)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	out := make([]*audit.Entry, 0)
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, audit.NewStorageError(backendSQLite, "query", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	return out, nil
}

// QueryStream streams matching entries row by row.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.Entry, <-chan error) {
	entries := make(chan *audit.Entry, streamBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(entries)
		defer close(errCh)

		stmt, args := s.selectStatement(query)
		rows, err := s.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			errCh <- audit.NewStorageError(backendSQLite, "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanSQLiteEntry(rows)
			if err != nil {
				errCh <- audit.NewStorageError(backendSQLite, "query_stream", err)
				return
			}
			select {
			case entries <- e:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- audit.NewStorageError(backendSQLite, "query_stream", err)
		}
	}()

	return entries, errCh
}

// Count returns the number of matching entries.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := whereClause(query, questionMark, sqliteTime)

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`+where, args...).Scan(&n); err != nil {
		return 0, audit.NewStorageError(backendSQLite, "count", err)
	}
	return n, nil
}

// Close closes the database. It is safe to call more than once.
func (s *SQLiteStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
		if err == nil {
			s.logger.Info("SQLite audit storage closed")
		}
	})
	return err
}

func (s *SQLiteStorage) selectStatement(query *audit.Query) (string, []interface{}) {
	where, args := whereClause(query, questionMark, sqliteTime)
	stmt := `SELECT ` + entryColumns + ` FROM audit_entries` + where + ` ORDER BY seq DESC`

	switch {
	case query.Limit > 0:
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, query.Limit, query.Offset)
	case query.Offset > 0:
		stmt += " LIMIT -1 OFFSET ?"
		args = append(args, query.Offset)
	}
	return stmt, args
}

func sqliteTime(t time.Time) interface{} {
	return t.UnixNano()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteEntry(row rowScanner) (*audit.Entry, error) {
	var (
		e       audit.Entry
		ts      int64
		action  string
		outcome string
		meta    string
	)
	if err := row.Scan(&e.Sequence, &e.ID, &ts, &e.Actor, &e.TenantID, &action,
		&e.Target, &outcome, &e.Success, &e.Reason, &meta); err != nil {
		return nil, err
	}
	m, err := decodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	e.Metadata = m
	e.Timestamp = time.Unix(0, ts).UTC()
	e.Action = audit.Action(action)
	e.Outcome = audit.Outcome(outcome)
	return &e, nil
}
