// Package catalog maps each classification level to its data handling
// policy.
//
// The catalog always holds exactly one policy per classification level.
// Policies are changed only through Update and never removed. Lookups are
// safe for concurrent use and always return copies.
package catalog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/sovereign/pkg/governance"
)

// DataPolicy is the storage, processing, retention and access policy of one
// classification level.
type DataPolicy struct {
	ID                 string                     `json:"id" yaml:"id"`
	Classification     governance.Classification  `json:"classification" yaml:"classification"`
	StorageMode        governance.StorageMode     `json:"storage_mode" yaml:"storage_mode"`
	ProcessingMode     governance.ProcessingMode  `json:"processing_mode" yaml:"processing_mode"`
	Retention          governance.RetentionPolicy `json:"retention" yaml:"retention"`
	EncryptionRequired bool                       `json:"encryption_required" yaml:"encryption_required"`
	AuditRequired      bool                       `json:"audit_required" yaml:"audit_required"`
	AllowedRoles       []string                   `json:"allowed_roles" yaml:"allowed_roles"`
	UpdatedAt          time.Time                  `json:"updated_at" yaml:"-"`
}

// AllowsAnyRole reports whether at least one of roles is allowed.
func (p DataPolicy) AllowsAnyRole(roles []string) bool {
	for _, r := range roles {
		for _, allowed := range p.AllowedRoles {
			if r == allowed {
				return true
			}
		}
	}
	return false
}

// Patch is a partial policy update. Nil fields are left unchanged.
type Patch struct {
	StorageMode        *governance.StorageMode     `json:"storage_mode,omitempty" yaml:"storage_mode"`
	ProcessingMode     *governance.ProcessingMode  `json:"processing_mode,omitempty" yaml:"processing_mode"`
	Retention          *governance.RetentionPolicy `json:"retention,omitempty" yaml:"retention"`
	EncryptionRequired *bool                       `json:"encryption_required,omitempty" yaml:"encryption_required"`
	AuditRequired      *bool                       `json:"audit_required,omitempty" yaml:"audit_required"`
	AllowedRoles       []string                    `json:"allowed_roles,omitempty" yaml:"allowed_roles"`
}

// Catalog holds one policy per classification level.
type Catalog struct {
	mu       sync.RWMutex
	policies map[governance.Classification]*DataPolicy
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a catalog seeded with DefaultPolicies.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		policies: make(map[governance.Classification]*DataPolicy),
		now:      time.Now,
		logger:   logger.With("component", "catalog"),
	}
	now := c.now().UTC()
	for _, p := range DefaultPolicies() {
		p := p
		p.UpdatedAt = now
		c.policies[p.Classification] = &p
	}
	return c
}

// DefaultPolicies returns the built-in policy table.
func DefaultPolicies() []DataPolicy {
	return []DataPolicy{
		{
			ID:             PolicyID(governance.ClassificationNormal),
			Classification: governance.ClassificationNormal,
			StorageMode:    governance.StorageStandard,
			ProcessingMode: governance.ProcessingUnrestricted,
			Retention:      governance.RetentionIndefinite,
			AllowedRoles:   []string{"user", "analyst", "admin"},
		},
		{
			ID:                 PolicyID(governance.ClassificationSensitive),
			Classification:     governance.ClassificationSensitive,
			StorageMode:        governance.StorageEncrypted,
			ProcessingMode:     governance.ProcessingRestricted,
			Retention:          governance.RetentionOneYear,
			EncryptionRequired: true,
			AuditRequired:      true,
			AllowedRoles:       []string{"analyst", "admin"},
		},
		{
			ID:                 PolicyID(governance.ClassificationHighlySensitive),
			Classification:     governance.ClassificationHighlySensitive,
			StorageMode:        governance.StorageEncryptedIsolated,
			ProcessingMode:     governance.ProcessingHighlyRestricted,
			Retention:          governance.Retention90Days,
			EncryptionRequired: true,
			AuditRequired:      true,
			AllowedRoles:       []string{"admin", "data-owner"},
		},
	}
}

// PolicyID returns the ID of the policy for classification c.
func PolicyID(c governance.Classification) string {
	return "policy-" + string(c)
}

// PolicyFor returns a copy of the policy for c. Unknown classifications
// get the normal policy.
func (c *Catalog) PolicyFor(class governance.Classification) DataPolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.policies[class]
	if !ok {
		p = c.policies[governance.ClassificationNormal]
	}
	return copyPolicy(p)
}

// Policies returns copies of every policy ordered by classification priority.
func (c *Catalog) Policies() []DataPolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]DataPolicy, 0, len(governance.Classifications))
	for _, class := range governance.Classifications {
		out = append(out, copyPolicy(c.policies[class]))
	}
	return out
}

// Update applies patch to the policy identified by key, which is either a
// classification level or a policy ID.
func (c *Catalog) Update(key string, patch Patch) (DataPolicy, error) {
	if err := validatePatch(patch); err != nil {
		return DataPolicy{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.lookup(key)
	if p == nil {
		return DataPolicy{}, governance.NotFound("policy", key)
	}

	next := copyPolicy(p)
	if patch.StorageMode != nil {
		next.StorageMode = *patch.StorageMode
	}
	if patch.ProcessingMode != nil {
		next.ProcessingMode = *patch.ProcessingMode
	}
	if patch.Retention != nil {
		next.Retention = *patch.Retention
	}
	if patch.EncryptionRequired != nil {
		next.EncryptionRequired = *patch.EncryptionRequired
	}
	if patch.AuditRequired != nil {
		next.AuditRequired = *patch.AuditRequired
	}
	if patch.AllowedRoles != nil {
		next.AllowedRoles = append([]string(nil), patch.AllowedRoles...)
	}
	if err := checkStorageEncryption(next); err != nil {
		return DataPolicy{}, err
	}
	next.UpdatedAt = c.now().UTC()
	*p = next

	c.logger.Info("policy updated",
		"policy_id", p.ID,
		"classification", p.Classification,
		"retention", p.Retention,
		"encryption_required", p.EncryptionRequired,
	)
	return copyPolicy(p), nil
}

func (c *Catalog) lookup(key string) *DataPolicy {
	if p, ok := c.policies[governance.Classification(key)]; ok {
		return p
	}
	for _, p := range c.policies {
		if p.ID == key {
			return p
		}
	}
	return nil
}

func validatePatch(patch Patch) error {
	if patch.StorageMode != nil && !patch.StorageMode.Valid() {
		return fmt.Errorf("%w: unknown storage mode %q", governance.ErrInvalidValue, *patch.StorageMode)
	}
	if patch.ProcessingMode != nil && !patch.ProcessingMode.Valid() {
		return fmt.Errorf("%w: unknown processing mode %q", governance.ErrInvalidValue, *patch.ProcessingMode)
	}
	if patch.Retention != nil && !patch.Retention.Valid() {
		return fmt.Errorf("%w: unknown retention policy %q", governance.ErrInvalidValue, *patch.Retention)
	}
	if patch.AllowedRoles != nil {
		if len(patch.AllowedRoles) == 0 {
			return fmt.Errorf("%w: allowed roles must not be empty", governance.ErrInvalidValue)
		}
		for _, r := range patch.AllowedRoles {
			if r == "" {
				return fmt.Errorf("%w: empty role name", governance.ErrInvalidValue)
			}
		}
	}
	return nil
}

// checkStorageEncryption rejects a storage mode that contradicts the
// encryption flag.
func checkStorageEncryption(p DataPolicy) error {
	encrypted := p.StorageMode != governance.StorageStandard
	if encrypted != p.EncryptionRequired {
		return fmt.Errorf("%w: storage mode %s with encryption_required=%t",
			governance.ErrInvalidValue, p.StorageMode, p.EncryptionRequired)
	}
	return nil
}

func copyPolicy(p *DataPolicy) DataPolicy {
	out := *p
	out.AllowedRoles = append([]string(nil), p.AllowedRoles...)
	return out
}
