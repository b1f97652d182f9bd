package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/sovereign/pkg/governance"
)

// Log is the append-only audit trail. It assigns identity and time to each
// entry and delegates persistence to a Storage backend.
type Log struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewLog creates a Log over storage.
func NewLog(storage Storage, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		storage: storage,
		logger:  logger.With("component", "audit"),
		now:     time.Now,
	}
}

// Append records entry and returns its ID. ID, Timestamp, Success and
// Sequence are overwritten.
func (l *Log) Append(ctx context.Context, entry *Entry) (string, error) {
	if err := validateEntry(entry); err != nil {
		return "", err
	}

	entry.ID = uuid.NewString()
	entry.Timestamp = l.now().UTC()
	entry.Success = entry.Outcome == OutcomeSuccess

	if err := l.storage.Append(ctx, entry); err != nil {
		l.logger.Error("failed to append audit entry",
			"action", entry.Action,
			"outcome", entry.Outcome,
			"error", err,
		)
		return "", err
	}

	l.logger.Debug("audit entry appended",
		"id", entry.ID,
		"sequence", entry.Sequence,
		"action", entry.Action,
		"outcome", entry.Outcome,
	)
	return entry.ID, nil
}

// Query returns entries matching q, newest first. A nil query matches all.
func (l *Log) Query(ctx context.Context, q *Query) ([]*Entry, error) {
	if q == nil {
		q = &Query{}
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", governance.ErrInvalidValue, err)
	}
	return l.storage.Query(ctx, q)
}

// QueryStream streams entries matching q, newest first.
func (l *Log) QueryStream(ctx context.Context, q *Query) (<-chan *Entry, <-chan error) {
	if q == nil {
		q = &Query{}
	}
	if err := q.Validate(); err != nil {
		entries := make(chan *Entry)
		errCh := make(chan error, 1)
		close(entries)
		errCh <- fmt.Errorf("%w: %v", governance.ErrInvalidValue, err)
		close(errCh)
		return entries, errCh
	}
	return l.storage.QueryStream(ctx, q)
}

// Count returns the number of entries matching q.
func (l *Log) Count(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	if err := q.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", governance.ErrInvalidValue, err)
	}
	return l.storage.Count(ctx, q)
}

// Close closes the underlying storage.
func (l *Log) Close() error {
	return l.storage.Close()
}

func validateEntry(e *Entry) error {
	if e == nil {
		return fmt.Errorf("%w: audit entry is nil", governance.ErrInvalidValue)
	}
	if e.Actor == "" {
		return fmt.Errorf("%w: audit entry actor is required", governance.ErrInvalidValue)
	}
	if !e.Action.Valid() {
		return fmt.Errorf("%w: unknown audit action %q", governance.ErrInvalidValue, e.Action)
	}
	if !e.Outcome.Valid() {
		return fmt.Errorf("%w: unknown audit outcome %q", governance.ErrInvalidValue, e.Outcome)
	}
	if (e.Outcome == OutcomeDenied || e.Outcome == OutcomeBlocked) && e.Reason == "" {
		return fmt.Errorf("%w: %s entries require a reason", governance.ErrInvalidValue, e.Outcome)
	}
	return nil
}
