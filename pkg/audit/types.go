// Package audit provides the append-only audit trail for governance
// operations.
//
// Every classification, write, read, delete, compliance check, tenant
// creation and policy update produces exactly one Entry. Entries are never
// updated or deleted through this package; storage backends expose only
// append, query and count. Exporters in the export subpackage stream entries
// to JSON or CSV for offline review.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Action identifies the audited operation.
type Action string

const (
	ActionClassify        Action = "classify"
	ActionWrite           Action = "write"
	ActionRead            Action = "read"
	ActionDelete          Action = "delete"
	ActionComplianceCheck Action = "compliance-check"
	ActionTenantCreate    Action = "tenant-create"
	ActionPolicyUpdate    Action = "policy-update"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionClassify, ActionWrite, ActionRead, ActionDelete,
		ActionComplianceCheck, ActionTenantCreate, ActionPolicyUpdate:
		return true
	}
	return false
}

// Outcome is the result of an audited operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeFailure Outcome = "failure"
	OutcomeBlocked Outcome = "blocked"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeDenied, OutcomeFailure, OutcomeBlocked:
		return true
	}
	return false
}

// Entry is one immutable audit record.
type Entry struct {
	// ID is a UUID assigned on append.
	ID string `json:"id"`

	// Sequence is assigned by the backend and is strictly increasing in
	// append order.
	Sequence int64 `json:"sequence"`

	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Action    Action    `json:"action"`

	// Target names the object acted on, e.g. "record:<id>" or "tenant:<id>".
	Target string `json:"target,omitempty"`

	Outcome Outcome `json:"outcome"`
	Success bool    `json:"success"`

	// Reason is mandatory for denied and blocked outcomes.
	Reason string `json:"reason,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	out := *e
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Query filters audit entries. Zero fields match everything.
type Query struct {
	Actor    string
	TenantID string
	Action   Action
	Target   string
	Outcome  Outcome

	// StartTime and EndTime bound Timestamp, both inclusive.
	StartTime *time.Time
	EndTime   *time.Time

	// Limit caps the number of results; 0 means no limit.
	Limit  int
	Offset int
}

// Validate checks the query for inconsistent bounds.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", q.Limit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", q.Offset)
	}
	if q.StartTime != nil && q.EndTime != nil && q.EndTime.Before(*q.StartTime) {
		return errors.New("end time must not be before start time")
	}
	if q.Action != "" && !q.Action.Valid() {
		return fmt.Errorf("unknown action %q", q.Action)
	}
	if q.Outcome != "" && !q.Outcome.Valid() {
		return fmt.Errorf("unknown outcome %q", q.Outcome)
	}
	return nil
}

// Matches reports whether e satisfies the query filters, ignoring paging.
func (q *Query) Matches(e *Entry) bool {
	if q.Actor != "" && e.Actor != q.Actor {
		return false
	}
	if q.TenantID != "" && e.TenantID != q.TenantID {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if q.Target != "" && e.Target != q.Target {
		return false
	}
	if q.Outcome != "" && e.Outcome != q.Outcome {
		return false
	}
	if q.StartTime != nil && e.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.Timestamp.After(*q.EndTime) {
		return false
	}
	return true
}

// Storage persists audit entries. Implementations must be safe for
// concurrent use and must not offer any way to modify stored entries.
type Storage interface {
	// Append stores entry and sets entry.Sequence.
	Append(ctx context.Context, entry *Entry) error

	// Query returns matching entries, newest first.
	Query(ctx context.Context, query *Query) ([]*Entry, error)

	// QueryStream streams matching entries, newest first. The entry channel
	// is closed when the query completes; at most one error is sent.
	QueryStream(ctx context.Context, query *Query) (<-chan *Entry, <-chan error)

	// Count returns the number of matching entries, ignoring paging.
	Count(ctx context.Context, query *Query) (int64, error)

	// Close releases backend resources.
	Close() error
}

// StorageError is a backend failure.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// ExportError is an export failure.
type ExportError struct {
	Format string

	// Written is the number of entries written before the failure.
	Written int

	Cause error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("audit export error [format=%s, written=%d]: %v", e.Format, e.Written, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates an ExportError.
func NewExportError(format string, written int, cause error) *ExportError {
	return &ExportError{Format: format, Written: written, Cause: cause}
}
