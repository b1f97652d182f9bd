package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/sovereign/pkg/governance"
)

// Evaluator evaluates compliance requests against its tables. It is safe
// for concurrent use; table updates take the write lock.
type Evaluator struct {
	mu        sync.RWMutex
	geo       map[string]GeoRestriction
	residency []ResidencyPolicy
	sectors   map[governance.SectorMode]SectorModeConfig

	store  CheckStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the evaluator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStore sets the check store. The default is an in-memory store.
func WithStore(store CheckStore) Option {
	return func(e *Evaluator) {
		if store != nil {
			e.store = store
		}
	}
}

// WithClock sets the time source used to stamp checks.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an evaluator over tables.
func New(tables Tables, opts ...Option) (*Evaluator, error) {
	tables.normalize()
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	e := &Evaluator{
		geo:     make(map[string]GeoRestriction, len(tables.GeoRestrictions)),
		sectors: make(map[governance.SectorMode]SectorModeConfig, len(tables.SectorModes)),
		store:   NewMemoryCheckStore(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "compliance")

	for _, g := range tables.GeoRestrictions {
		e.geo[g.CountryCode] = g
	}
	e.residency = append(e.residency, tables.ResidencyPolicies...)
	sortPolicies(e.residency)
	for _, s := range tables.SectorModes {
		e.sectors[s.Mode] = s
	}

	e.logger.Debug("compliance tables loaded",
		"geo_restrictions", len(e.geo),
		"residency_policies", len(e.residency),
		"sector_modes", len(e.sectors),
	)
	return e, nil
}

// Check evaluates req, persists the resulting check and returns it. The
// decision itself is never an error; errors report invalid requests or a
// failure to persist.
func (e *Evaluator) Check(ctx context.Context, req Request) (*Check, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	check := e.Evaluate(req)
	check.ID = uuid.NewString()
	check.Timestamp = e.now().UTC()

	if err := e.store.Save(ctx, check); err != nil {
		return nil, fmt.Errorf("failed to persist compliance check: %w", err)
	}

	e.logger.Debug("compliance check evaluated",
		"check_id", check.ID,
		"operation", check.Operation,
		"source", check.SourceCountry,
		"target", check.TargetCountry,
		"sector_mode", check.SectorMode,
		"result", check.Result,
		"violations", len(check.Violations),
		"conditions", len(check.Conditions),
	)
	return check, nil
}

// Evaluate runs the decision procedure without persisting anything. The
// request must already be normalized. Given the same request and tables it
// always returns the same result.
func (e *Evaluator) Evaluate(req Request) *Check {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var (
		violations []Violation
		conditions conditionList
	)

	// Source country restriction.
	if geo, ok := e.geo[req.SourceCountry]; ok {
		if geo.Level == governance.RestrictionProhibited {
			violations = append(violations, Violation{
				Code:     CodeGeoProhibited,
				Severity: governance.SeverityCritical,
				Message:  fmt.Sprintf("operations in %s are prohibited", req.SourceCountry),
			})
		}
		if !containsSector(geo.AllowedSectorModes, req.SectorMode) {
			violations = append(violations, Violation{
				Code:     CodeSectorNotAllowed,
				Severity: governance.SeverityHigh,
				Message:  fmt.Sprintf("sector mode %s is not permitted in %s", req.SectorMode, req.SourceCountry),
			})
		}
		if contains(geo.ApprovalRequired, string(req.SectorMode)) {
			conditions.add(fmt.Sprintf("requires approval: sector mode %s in %s", req.SectorMode, req.SourceCountry))
		}
		if contains(geo.BlockedOperations, req.Operation) {
			violations = append(violations, Violation{
				Code:     CodeOperationBlocked,
				Severity: governance.SeverityHigh,
				Message:  fmt.Sprintf("operation %s is blocked in %s", req.Operation, req.SourceCountry),
			})
		} else if len(geo.AllowedOperations) > 0 && !contains(geo.AllowedOperations, req.Operation) {
			violations = append(violations, Violation{
				Code:     CodeOperationNotAllowed,
				Severity: governance.SeverityHigh,
				Message:  fmt.Sprintf("operation %s is not on the allow list for %s", req.Operation, req.SourceCountry),
			})
		}
		if contains(geo.ApprovalRequired, req.Operation) {
			conditions.add(fmt.Sprintf("requires approval: operation %s in %s", req.Operation, req.SourceCountry))
		}
		if geo.Level == governance.RestrictionRestricted {
			conditions.add(geo.SpecialConditions...)
		}
	} else {
		conditions.add(fmt.Sprintf("requires approval: no geo restriction registered for %s", req.SourceCountry))
	}

	// Residency for cross-border transfers.
	if req.TargetCountry != "" && req.TargetCountry != req.SourceCountry {
		for _, p := range e.residency {
			if !p.Enabled || !intersects(p.DataTypes, req.DataTypes) {
				continue
			}
			switch {
			case p.LocalStorageOnly:
				violations = append(violations, Violation{
					Code:     CodeLocalStorageOnly,
					Severity: governance.SeverityHigh,
					Message:  fmt.Sprintf("residency policy %s requires local storage in %s", p.ID, p.Region),
				})
			case !p.CrossBorderAllowed:
				violations = append(violations, Violation{
					Code:     CodeCrossBorderProhibited,
					Severity: governance.SeverityHigh,
					Message:  fmt.Sprintf("residency policy %s prohibits cross-border transfer", p.ID),
				})
			default:
				conditions.add(p.CrossBorderConditions...)
			}
			if contains(p.BlockedCountries, req.TargetCountry) {
				violations = append(violations, Violation{
					Code:     CodeBlockedDestination,
					Severity: governance.SeverityCritical,
					Message:  fmt.Sprintf("%s is a blocked destination under residency policy %s", req.TargetCountry, p.ID),
				})
			}
		}
	}

	// Sector mode posture.
	if sector, ok := e.sectors[req.SectorMode]; ok && sector.SecurityLevel.Elevated() {
		if sector.EncryptionStandard != "" {
			conditions.add("encryption standard: " + sector.EncryptionStandard)
		}
		conditions.add(sector.AdditionalRestrictions...)
	}

	return &Check{
		TenantID:      req.TenantID,
		Operation:     req.Operation,
		SourceCountry: req.SourceCountry,
		TargetCountry: req.TargetCountry,
		DataTypes:     append([]string(nil), req.DataTypes...),
		SectorMode:    req.SectorMode,
		Result:        Decide(violations, conditions),
		Violations:    nonNilViolations(violations),
		Conditions:    conditions.slice(),
		RequestedBy:   req.Actor,
	}
}

// Get returns a persisted check.
func (e *Evaluator) Get(ctx context.Context, id string) (*Check, error) {
	return e.store.Get(ctx, id)
}

// List returns persisted checks, newest first.
func (e *Evaluator) List(ctx context.Context, tenantID string, limit int) ([]*Check, error) {
	return e.store.List(ctx, tenantID, limit)
}

// GeoRestriction returns the restriction for a country code.
func (e *Evaluator) GeoRestriction(code string) (GeoRestriction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.geo[countryCode(code)]
	return g, ok
}

// ResidencyPolicies returns the residency policies ordered by ID.
func (e *Evaluator) ResidencyPolicies() []ResidencyPolicy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ResidencyPolicy(nil), e.residency...)
}

// SectorMode returns the configuration for a sector mode.
func (e *Evaluator) SectorMode(mode governance.SectorMode) (SectorModeConfig, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sectors[mode]
	return s, ok
}

// UpsertGeoRestriction adds or replaces the restriction for its country.
func (e *Evaluator) UpsertGeoRestriction(g GeoRestriction) error {
	g.normalize()
	if err := g.validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.geo[g.CountryCode] = g
	e.logger.Info("geo restriction updated", "country", g.CountryCode, "level", g.Level)
	return nil
}

// UpsertResidencyPolicy adds or replaces a residency policy by ID.
func (e *Evaluator) UpsertResidencyPolicy(p ResidencyPolicy) error {
	p.normalize()
	if err := p.validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.residency {
		if e.residency[i].ID == p.ID {
			e.residency[i] = p
			e.logger.Info("residency policy updated", "policy", p.ID)
			return nil
		}
	}
	e.residency = append(e.residency, p)
	sortPolicies(e.residency)
	e.logger.Info("residency policy added", "policy", p.ID)
	return nil
}

// SetResidencyPolicyEnabled toggles a residency policy.
func (e *Evaluator) SetResidencyPolicyEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.residency {
		if e.residency[i].ID == id {
			e.residency[i].Enabled = enabled
			e.logger.Info("residency policy toggled", "policy", id, "enabled", enabled)
			return nil
		}
	}
	return governance.NotFound("residency policy", id)
}

func normalizeRequest(req Request) (Request, error) {
	req.Operation = strings.TrimSpace(req.Operation)
	req.SourceCountry = countryCode(req.SourceCountry)
	req.TargetCountry = countryCode(req.TargetCountry)

	if req.Operation == "" {
		return req, fmt.Errorf("%w: operation is required", governance.ErrInvalidValue)
	}
	if req.SourceCountry == "" {
		return req, fmt.Errorf("%w: source country is required", governance.ErrInvalidValue)
	}
	if req.SectorMode == "" {
		req.SectorMode = governance.SectorCivilian
	}
	if _, err := governance.ParseSectorMode(string(req.SectorMode)); err != nil {
		return req, err
	}

	types := make([]string, 0, len(req.DataTypes))
	for _, dt := range req.DataTypes {
		if dt = dataType(dt); dt != "" {
			types = append(types, dt)
		}
	}
	req.DataTypes = types
	return req, nil
}

// conditionList keeps conditions in insertion order without duplicates.
type conditionList []string

func (c *conditionList) add(conds ...string) {
	for _, cond := range conds {
		if cond == "" || contains(*c, cond) {
			continue
		}
		*c = append(*c, cond)
	}
}

func (c conditionList) slice() []string {
	if c == nil {
		return []string{}
	}
	return []string(c)
}

func nonNilViolations(v []Violation) []Violation {
	if v == nil {
		return []Violation{}
	}
	return v
}

func sortPolicies(p []ResidencyPolicy) {
	sort.SliceStable(p, func(i, j int) bool { return p[i].ID < p[j].ID })
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsSector(list []governance.SectorMode, m governance.SectorMode) bool {
	for _, v := range list {
		if v == m {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}
