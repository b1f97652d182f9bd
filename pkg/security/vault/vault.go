// Package vault issues and holds per-tenant encryption keys.
//
// Every tenant receives one random 256-bit key at creation. The key is
// returned exactly once for provisioning; listings only ever show a
// redacted placeholder. Tenants without an isolation entry fall back to
// the process master key.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/sovereign/pkg/governance"
	"mercator-hq/sovereign/pkg/security/cipher"
)

// RedactedKey replaces key material in listings.
const RedactedKey = "[REDACTED]"

// Scope says which key KeyFor returned.
type Scope string

const (
	ScopeTenant Scope = "tenant"
	ScopeMaster Scope = "master"
)

// Options are the isolation settings supplied at tenant creation.
type Options struct {
	AllowedCategories []governance.Category
	BlockedCategories []governance.Category
	CrossTenantAccess bool
}

// IsolationPatch updates isolation settings. Nil fields are left unchanged.
type IsolationPatch struct {
	AllowedCategories *[]governance.Category
	BlockedCategories *[]governance.Category
	CrossTenantAccess *bool
}

// Tenant is the isolation record of one tenant as exposed to callers.
// Key always holds RedactedKey.
type Tenant struct {
	ID                string                `json:"tenant_id"`
	Name              string                `json:"name"`
	Key               string                `json:"key"`
	AllowedCategories []governance.Category `json:"allowed_categories,omitempty"`
	BlockedCategories []governance.Category `json:"blocked_categories,omitempty"`
	CrossTenantAccess bool                  `json:"cross_tenant_access"`
	CreatedAt         time.Time             `json:"created_at"`
}

// Permits reports whether data of category c may be stored for the tenant.
// A blocked category is always refused; a non-empty allow list refuses
// anything not on it.
func (t Tenant) Permits(c governance.Category) (bool, string) {
	for _, blocked := range t.BlockedCategories {
		if blocked == c {
			return false, fmt.Sprintf("category %s is blocked for tenant %s", c, t.ID)
		}
	}
	if len(t.AllowedCategories) == 0 {
		return true, ""
	}
	for _, allowed := range t.AllowedCategories {
		if allowed == c {
			return true, ""
		}
	}
	return false, fmt.Sprintf("category %s is not allowed for tenant %s", c, t.ID)
}

type entry struct {
	tenant Tenant
	key    []byte
}

// Vault holds tenant keys and the master key.
type Vault struct {
	mu      sync.RWMutex
	master  []byte
	tenants map[string]*entry
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a vault over a 32-byte master key.
func New(masterKey []byte, logger *slog.Logger) (*Vault, error) {
	if len(masterKey) != cipher.KeySize {
		return nil, &governance.ConfigurationError{
			Field:   "engine.master_key",
			Message: fmt.Sprintf("master key must be %d bytes, got %d", cipher.KeySize, len(masterKey)),
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	master := make([]byte, len(masterKey))
	copy(master, masterKey)

	return &Vault{
		master:  master,
		tenants: make(map[string]*entry),
		now:     time.Now,
		logger:  logger.With("component", "vault"),
	}, nil
}

// CreateTenant registers a tenant and returns its freshly generated key.
// The key is never returned again. Creating an existing tenant fails with
// governance.ErrTenantExists and leaves the first key in place.
func (v *Vault) CreateTenant(ctx context.Context, id, name string, opts Options) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: tenant id is required", governance.ErrInvalidValue)
	}
	if err := validateCategories(opts.AllowedCategories, opts.BlockedCategories); err != nil {
		return nil, err
	}

	key, err := cipher.GenerateKey()
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.tenants[id]; exists {
		cipher.ZeroBytes(key)
		return nil, fmt.Errorf("%w: %s", governance.ErrTenantExists, id)
	}

	v.tenants[id] = &entry{
		tenant: Tenant{
			ID:                id,
			Name:              name,
			Key:               RedactedKey,
			AllowedCategories: cloneCategories(opts.AllowedCategories),
			BlockedCategories: cloneCategories(opts.BlockedCategories),
			CrossTenantAccess: opts.CrossTenantAccess,
			CreatedAt:         v.now().UTC(),
		},
		key: key,
	}

	v.logger.Info("tenant created", "tenant_id", id, "cross_tenant_access", opts.CrossTenantAccess)

	out := make([]byte, len(key))
	copy(out, key)
	return out, nil
}

// KeyFor returns the tenant's key, or the master key when the tenant has
// no isolation entry.
func (v *Vault) KeyFor(tenantID string) ([]byte, Scope) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if e, ok := v.tenants[tenantID]; ok {
		return cloneKey(e.key), ScopeTenant
	}
	return cloneKey(v.master), ScopeMaster
}

// KeyForScope returns the key a record was sealed with. Records sealed
// before their tenant was registered keep using the master key. An empty
// scope behaves like KeyFor.
func (v *Vault) KeyForScope(tenantID string, scope Scope) ([]byte, error) {
	switch scope {
	case "":
		key, _ := v.KeyFor(tenantID)
		return key, nil
	case ScopeMaster:
		v.mu.RLock()
		defer v.mu.RUnlock()
		return cloneKey(v.master), nil
	case ScopeTenant:
		v.mu.RLock()
		defer v.mu.RUnlock()
		e, ok := v.tenants[tenantID]
		if !ok {
			return nil, governance.NotFound("tenant", tenantID)
		}
		return cloneKey(e.key), nil
	default:
		return nil, fmt.Errorf("%w: key scope %q", governance.ErrInvalidValue, scope)
	}
}

func cloneKey(key []byte) []byte {
	out := make([]byte, len(key))
	copy(out, key)
	return out
}

// Tenant returns the isolation settings of one tenant.
func (v *Vault) Tenant(id string) (Tenant, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	e, ok := v.tenants[id]
	if !ok {
		return Tenant{}, governance.NotFound("tenant", id)
	}
	return copyTenant(e.tenant), nil
}

// Tenants lists every tenant ordered by ID, keys redacted.
func (v *Vault) Tenants() []Tenant {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Tenant, 0, len(v.tenants))
	for _, e := range v.tenants {
		out = append(out, copyTenant(e.tenant))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CrossTenantAccess reports whether the tenant's records may be read by
// other tenants. Unregistered tenants never allow it.
func (v *Vault) CrossTenantAccess(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	e, ok := v.tenants[id]
	return ok && e.tenant.CrossTenantAccess
}

// UpdateIsolation changes a tenant's isolation settings. The key is untouched.
func (v *Vault) UpdateIsolation(id string, patch IsolationPatch) (Tenant, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.tenants[id]
	if !ok {
		return Tenant{}, governance.NotFound("tenant", id)
	}

	allowed, blocked := e.tenant.AllowedCategories, e.tenant.BlockedCategories
	if patch.AllowedCategories != nil {
		allowed = *patch.AllowedCategories
	}
	if patch.BlockedCategories != nil {
		blocked = *patch.BlockedCategories
	}
	if err := validateCategories(allowed, blocked); err != nil {
		return Tenant{}, err
	}

	e.tenant.AllowedCategories = cloneCategories(allowed)
	e.tenant.BlockedCategories = cloneCategories(blocked)
	if patch.CrossTenantAccess != nil {
		e.tenant.CrossTenantAccess = *patch.CrossTenantAccess
	}

	v.logger.Info("tenant isolation updated", "tenant_id", id, "cross_tenant_access", e.tenant.CrossTenantAccess)
	return copyTenant(e.tenant), nil
}

// Count returns the number of registered tenants.
func (v *Vault) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.tenants)
}

func validateCategories(sets ...[]governance.Category) error {
	for _, set := range sets {
		for _, c := range set {
			if !c.Valid() {
				return fmt.Errorf("%w: unknown category %q", governance.ErrInvalidValue, c)
			}
		}
	}
	return nil
}

func cloneCategories(in []governance.Category) []governance.Category {
	if len(in) == 0 {
		return nil
	}
	out := make([]governance.Category, len(in))
	copy(out, in)
	return out
}

func copyTenant(t Tenant) Tenant {
	t.AllowedCategories = cloneCategories(t.AllowedCategories)
	t.BlockedCategories = cloneCategories(t.BlockedCategories)
	return t
}
