package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registered as "sqlite"

	"mercator-hq/sovereign/pkg/governance"
	"mercator-hq/sovereign/pkg/records"
)

const backendSQLite = "sqlite"

const recordsSchema = `
CREATE TABLE IF NOT EXISTS data_records (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	data_type       TEXT NOT NULL,
	classification  TEXT NOT NULL,
	category        TEXT NOT NULL,
	ciphertext      TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL DEFAULT '',
	metadata        TEXT NOT NULL,
	access_log_ref  TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL,
	expires_at      INTEGER
);

CREATE INDEX IF NOT EXISTS idx_records_tenant ON data_records(tenant_id);
CREATE INDEX IF NOT EXISTS idx_records_expires ON data_records(expires_at);
CREATE INDEX IF NOT EXISTS idx_records_created ON data_records(created_at);
`

const recordColumns = `id, tenant_id, data_type, classification, category, ciphertext, content,
	metadata, access_log_ref, created_at, updated_at, expires_at`

// SQLiteConfig configures the SQLite record store.
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// SQLiteStorage persists records in a SQLite database (WAL mode).
type SQLiteStorage struct {
	db        *sql.DB
	mu        sync.RWMutex
	closeOnce sync.Once
}

// NewSQLiteStorage opens or creates the database at cfg.Path.
func NewSQLiteStorage(cfg SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, records.NewStorageError(backendSQLite, "open", errors.New("database path is required"))
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, records.NewStorageError(backendSQLite, "open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(recordsSchema); err != nil {
		db.Close()
		return nil, records.NewStorageError(backendSQLite, "init_schema", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Put inserts a record.
func (s *SQLiteStorage) Put(ctx context.Context, r *records.DataRecord) error {
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return records.NewStorageError(backendSQLite, "put", fmt.Errorf("failed to marshal metadata: %w", err))
	}

	var expires sql.NullInt64
	if r.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: r.ExpiresAt.UnixNano(), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT INTO data_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.DataType, string(r.Classification), string(r.Category),
		r.Ciphertext, r.Content, string(meta), r.AccessLogRef,
		r.CreatedAt.UnixNano(), r.UpdatedAt.UnixNano(), expires,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return records.ErrDuplicate(r.ID)
		}
		return records.NewStorageError(backendSQLite, "put", err)
	}
	return nil
}

// Get returns a record by ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*records.DataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM data_records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, governance.NotFound("record", id)
	}
	if err != nil {
		return nil, records.NewStorageError(backendSQLite, "get", err)
	}
	return r, nil
}

// Delete removes a record.
func (s *SQLiteStorage) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM data_records WHERE id = ?`, id)
	if err != nil {
		return false, records.NewStorageError(backendSQLite, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, records.NewStorageError(backendSQLite, "delete", err)
	}
	return n > 0, nil
}

// Scan returns matching records ordered by creation time.
func (s *SQLiteStorage) Scan(ctx context.Context, filter records.Filter) ([]*records.DataRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.ExpiredBefore != nil {
		where = append(where, "expires_at IS NOT NULL AND expires_at <= ?")
		args = append(args, filter.ExpiredBefore.UnixNano())
	}

	query := `SELECT ` + recordColumns + ` FROM data_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, records.NewStorageError(backendSQLite, "scan", err)
	}
	defer rows.Close()

	out := make([]*records.DataRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, records.NewStorageError(backendSQLite, "scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, records.NewStorageError(backendSQLite, "scan", err)
	}
	return out, nil
}

// Count returns the number of records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM data_records`).Scan(&n); err != nil {
		return 0, records.NewStorageError(backendSQLite, "count", err)
	}
	return n, nil
}

// Close closes the database. It is safe to call more than once.
func (s *SQLiteStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*records.DataRecord, error) {
	var (
		r              records.DataRecord
		classification string
		category       string
		meta           string
		created        int64
		updated        int64
		expires        sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.TenantID, &r.DataType, &classification, &category,
		&r.Ciphertext, &r.Content, &meta, &r.AccessLogRef, &created, &updated, &expires); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	r.Classification = governance.Classification(classification)
	r.Category = governance.Category(category)
	r.CreatedAt = time.Unix(0, created).UTC()
	r.UpdatedAt = time.Unix(0, updated).UTC()
	if expires.Valid {
		t := time.Unix(0, expires.Int64).UTC()
		r.ExpiresAt = &t
	}
	return &r, nil
}
