// Package records defines the classified data record and the narrow storage
// contract used to persist it.
//
// Records are created once and never edited in place; a new version of the
// data is a new record. Deletion is a hard delete. Backends live in the
// storage subpackage.
package records

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/sovereign/pkg/governance"
)

// DataRecord is one classified, optionally encrypted, piece of data.
type DataRecord struct {
	ID             string                    `json:"id"`
	TenantID       string                    `json:"tenant_id"`
	DataType       string                    `json:"data_type"`
	Classification governance.Classification `json:"classification"`
	Category       governance.Category       `json:"category"`

	// Ciphertext holds the encrypted blob when the policy requires
	// encryption. Content holds plaintext otherwise. Exactly one is set.
	Ciphertext string `json:"ciphertext,omitempty"`
	Content    string `json:"content,omitempty"`

	Metadata Metadata `json:"metadata"`

	// AccessLogRef is the audit target under which every access to this
	// record is logged.
	AccessLogRef string `json:"access_log_ref"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Metadata describes how a record was classified and stored.
type Metadata struct {
	OriginalLength int      `json:"original_length"`
	MatchedRules   []string `json:"matched_rules"`
	Confidence     float64  `json:"confidence"`
	KeyScope       string   `json:"key_scope,omitempty"`
}

// Encrypted reports whether the record payload is ciphertext.
func (r *DataRecord) Encrypted() bool {
	return r.Ciphertext != ""
}

// Expired reports whether the record's retention has lapsed at t.
func (r *DataRecord) Expired(t time.Time) bool {
	return r.ExpiresAt != nil && !t.Before(*r.ExpiresAt)
}

// Clone returns a deep copy.
func (r *DataRecord) Clone() *DataRecord {
	out := *r
	out.Metadata.MatchedRules = append([]string(nil), r.Metadata.MatchedRules...)
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}

// AccessLogRef returns the audit target used for a record ID.
func AccessLogRef(id string) string {
	return "record:" + id
}

// Filter narrows a Scan. Zero fields match everything.
type Filter struct {
	TenantID string

	// ExpiredBefore matches records whose ExpiresAt is set and not after
	// this instant.
	ExpiredBefore *time.Time

	Limit int
}

// Matches reports whether r satisfies the filter, ignoring Limit.
func (f Filter) Matches(r *DataRecord) bool {
	if f.TenantID != "" && r.TenantID != f.TenantID {
		return false
	}
	if f.ExpiredBefore != nil {
		if r.ExpiresAt == nil || r.ExpiresAt.After(*f.ExpiredBefore) {
			return false
		}
	}
	return true
}

// Storage persists records. Implementations must be safe for concurrent
// use and write each record atomically.
type Storage interface {
	// Put inserts a new record. Inserting an existing ID is an error.
	Put(ctx context.Context, record *DataRecord) error

	// Get returns the record or a governance.ErrNotFound error.
	Get(ctx context.Context, id string) (*DataRecord, error)

	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Scan returns records matching filter ordered by creation time.
	Scan(ctx context.Context, filter Filter) ([]*DataRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

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
	return fmt.Sprintf("record storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// ErrDuplicate reports an insert of an existing record ID.
func ErrDuplicate(id string) error {
	return fmt.Errorf("%w: record %s already exists", governance.ErrInvalidValue, id)
}
