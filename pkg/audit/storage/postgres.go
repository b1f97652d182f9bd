package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercator-hq/sovereign/pkg/audit"
)

const backendPostgres = "postgres"

// PostgresSchema creates the audit table and the immutability trigger.
// CREATE OR REPLACE TRIGGER requires PostgreSQL 14 or newer.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    timestamp TIMESTAMPTZ NOT NULL,
    actor TEXT NOT NULL,
    tenant_id TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    target TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_entries(actor);
CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_entries(tenant_id);
CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_entries(target);

CREATE OR REPLACE FUNCTION audit_entries_immutable() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'audit entries are immutable';
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE TRIGGER audit_entries_immutable
BEFORE UPDATE OR DELETE ON audit_entries
FOR EACH ROW EXECUTE FUNCTION audit_entries_immutable();
`

const pgEntryColumns = `seq, id, timestamp, actor, tenant_id, action, target, outcome, success, reason, metadata::text`

// PostgresConfig configures the PostgreSQL audit backend.
type PostgresConfig struct {
	// DSN is a libpq connection string or URL.
	DSN string

	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32
}

// PostgresStorage implements audit.Storage on a pgx connection pool.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStorage connects, pings and applies the schema.
func NewPostgresStorage(ctx context.Context, config PostgresConfig) (*PostgresStorage, error) {
	if config.DSN == "" {
		return nil, audit.NewStorageError(backendPostgres, "open", errors.New("dsn is required"))
	}

	poolCfg, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, audit.NewStorageError(backendPostgres, "parse_config", err)
	}
	if config.MaxConns > 0 {
		poolCfg.MaxConns = config.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, audit.NewStorageError(backendPostgres, "open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, audit.NewStorageError(backendPostgres, "ping", err)
	}
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, audit.NewStorageError(backendPostgres, "create_schema", err)
	}

	logger := slog.Default().With("component", "audit.storage.postgres")
	logger.Info("PostgreSQL audit storage initialized", "max_conns", poolCfg.MaxConns)

	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// Append inserts entry and sets its sequence.
func (s *PostgresStorage) Append(ctx context.Context, entry *audit.Entry) error {
	meta, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return audit.NewStorageError(backendPostgres, "append", err)
	}

	err = s.pool.QueryRow(ctx, `INSERT INTO audit_entries
		(id, timestamp, actor, tenant_id, action, target, outcome, success, reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
		RETURNING seq`,
		entry.ID, entry.Timestamp, entry.Actor, entry.TenantID,
		string(entry.Action), entry.Target, string(entry.Outcome), entry.Success,
		entry.Reason, meta,
	).Scan(&entry.Sequence)
	if err != nil {
		return audit.NewStorageError(backendPostgres, "append", err)
	}
	return nil
}

// Query returns matching entries, newest first.
func (s *PostgresStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Entry, error) {
	stmt, args := postgresSelect(query)

	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, audit.NewStorageError(backendPostgres, "query", err)
	}
	defer rows.Close()

	out := make([]*audit.Entry, 0)
	for rows.Next() {
		e, err := scanPostgresEntry(rows)
		if err != nil {
			return nil, audit.NewStorageError(backendPostgres, "query", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(backendPostgres, "query", err)
	}
	return out, nil
}

// QueryStream streams matching entries row by row.
func (s *PostgresStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.Entry, <-chan error) {
	entries := make(chan *audit.Entry, streamBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(entries)
		defer close(errCh)

		stmt, args := postgresSelect(query)
		rows, err := s.pool.Query(ctx, stmt, args...)
		if err != nil {
			errCh <- audit.NewStorageError(backendPostgres, "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanPostgresEntry(rows)
			if err != nil {
				errCh <- audit.NewStorageError(backendPostgres, "query_stream", err)
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
			errCh <- audit.NewStorageError(backendPostgres, "query_stream", err)
		}
	}()

	return entries, errCh
}

// Count returns the number of matching entries.
func (s *PostgresStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := whereClause(query, dollar, postgresTime)

	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_entries`+where, args...).Scan(&n); err != nil {
		return 0, audit.NewStorageError(backendPostgres, "count", err)
	}
	return n, nil
}

// Close releases the pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func postgresSelect(query *audit.Query) (string, []interface{}) {
	where, args := whereClause(query, dollar, postgresTime)
	stmt := `SELECT ` + pgEntryColumns + ` FROM audit_entries` + where + ` ORDER BY seq DESC`

	if query.Limit > 0 {
		args = append(args, query.Limit)
		stmt += " LIMIT " + dollar(len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		stmt += " OFFSET " + dollar(len(args))
	}
	return stmt, args
}

func postgresTime(t time.Time) interface{} {
	return t
}

func scanPostgresEntry(row pgx.Row) (*audit.Entry, error) {
	var (
		e       audit.Entry
		action  string
		outcome string
		meta    string
	)
	if err := row.Scan(&e.Sequence, &e.ID, &e.Timestamp, &e.Actor, &e.TenantID, &action,
		&e.Target, &outcome, &e.Success, &e.Reason, &meta); err != nil {
		return nil, err
	}
	m, err := decodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	e.Metadata = m
	e.Timestamp = e.Timestamp.UTC()
	e.Action = audit.Action(action)
	e.Outcome = audit.Outcome(outcome)
	return &e, nil
}
