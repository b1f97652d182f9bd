// Package compliance decides whether a data operation may proceed given the
// source and destination countries, the data types involved and the sector
// mode of the requester.
//
// Three tables drive the decision: geo restrictions keyed by country code,
// residency policies keyed by region, and sector mode configurations. An
// Evaluator holds the tables, evaluates requests deterministically and
// persists every resulting Check. A denied or pending result is a normal
// return value, not an error.
package compliance

import (
	"time"

	"mercator-hq/sovereign/pkg/governance"
)

// Violation codes.
const (
	CodeGeoProhibited         = "GEO_PROHIBITED"
	CodeSectorNotAllowed      = "SECTOR_NOT_ALLOWED"
	CodeOperationBlocked      = "OPERATION_BLOCKED"
	CodeOperationNotAllowed   = "OPERATION_NOT_ALLOWED"
	CodeLocalStorageOnly      = "LOCAL_STORAGE_ONLY"
	CodeCrossBorderProhibited = "CROSS_BORDER_PROHIBITED"
	CodeBlockedDestination    = "BLOCKED_DESTINATION"
)

// GeoRestriction is the per-country rule on operations and sector modes.
type GeoRestriction struct {
	CountryCode       string                      `yaml:"country_code" json:"country_code"`
	Level             governance.RestrictionLevel `yaml:"level" json:"level"`
	AllowedOperations []string                    `yaml:"allowed_operations,omitempty" json:"allowed_operations,omitempty"`
	BlockedOperations []string                    `yaml:"blocked_operations,omitempty" json:"blocked_operations,omitempty"`

	// ApprovalRequired lists operations and sector modes that need explicit
	// approval in this country.
	ApprovalRequired []string `yaml:"approval_required,omitempty" json:"approval_required,omitempty"`

	AllowedSectorModes []governance.SectorMode `yaml:"allowed_sector_modes" json:"allowed_sector_modes"`
	SpecialConditions  []string                `yaml:"special_conditions,omitempty" json:"special_conditions,omitempty"`
}

// ResidencyPolicy restricts where data of given types may be stored or sent.
type ResidencyPolicy struct {
	ID                    string   `yaml:"id" json:"id"`
	Region                string   `yaml:"region" json:"region"`
	AllowedCountries      []string `yaml:"allowed_countries,omitempty" json:"allowed_countries,omitempty"`
	BlockedCountries      []string `yaml:"blocked_countries,omitempty" json:"blocked_countries,omitempty"`
	DataTypes             []string `yaml:"data_types" json:"data_types"`
	EncryptionRequired    bool     `yaml:"encryption_required" json:"encryption_required"`
	LocalStorageOnly      bool     `yaml:"local_storage_only" json:"local_storage_only"`
	CrossBorderAllowed    bool     `yaml:"cross_border_allowed" json:"cross_border_allowed"`
	CrossBorderConditions []string `yaml:"cross_border_conditions,omitempty" json:"cross_border_conditions,omitempty"`
	Frameworks            []string `yaml:"frameworks,omitempty" json:"frameworks,omitempty"`
	Enabled               bool     `yaml:"enabled" json:"enabled"`
}

// SectorModeConfig is the security posture mandated by a sector mode.
type SectorModeConfig struct {
	Mode                   governance.SectorMode    `yaml:"mode" json:"mode"`
	SecurityLevel          governance.SecurityLevel `yaml:"security_level" json:"security_level"`
	RequiredFrameworks     []string                 `yaml:"required_frameworks,omitempty" json:"required_frameworks,omitempty"`
	AdditionalRestrictions []string                 `yaml:"additional_restrictions,omitempty" json:"additional_restrictions,omitempty"`
	AuditLevel             string                   `yaml:"audit_level" json:"audit_level"`
	AccessControlLevel     string                   `yaml:"access_control_level" json:"access_control_level"`
	EncryptionStandard     string                   `yaml:"encryption_standard" json:"encryption_standard"`
	RetentionYears         int                      `yaml:"retention_years" json:"retention_years"`
}

// Request is one operation to evaluate.
type Request struct {
	TenantID      string
	Operation     string
	SourceCountry string

	// TargetCountry is empty for operations that stay in the source country.
	TargetCountry string

	DataTypes []string

	// SectorMode defaults to civilian when empty.
	SectorMode governance.SectorMode

	Actor string
}

// Violation is one rule breach found during evaluation.
type Violation struct {
	Code     string              `json:"code"`
	Severity governance.Severity `json:"severity"`
	Message  string              `json:"message"`
}

// Check is the immutable result of one evaluation.
type Check struct {
	ID            string                      `json:"id"`
	TenantID      string                      `json:"tenant_id,omitempty"`
	Operation     string                      `json:"operation"`
	SourceCountry string                      `json:"source_country"`
	TargetCountry string                      `json:"target_country,omitempty"`
	DataTypes     []string                    `json:"data_types"`
	SectorMode    governance.SectorMode       `json:"sector_mode"`
	Result        governance.ComplianceResult `json:"result"`
	Violations    []Violation                 `json:"violations"`
	Conditions    []string                    `json:"conditions"`
	Timestamp     time.Time                   `json:"timestamp"`
	RequestedBy   string                      `json:"requested_by"`
}

// HasViolation reports whether the check contains a violation with code.
func (c *Check) HasViolation(code string) bool {
	for _, v := range c.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c *Check) Clone() *Check {
	out := *c
	out.DataTypes = append([]string(nil), c.DataTypes...)
	out.Violations = append([]Violation(nil), c.Violations...)
	out.Conditions = append([]string(nil), c.Conditions...)
	return &out
}

// Decide applies the decision precedence to a set of findings. Any critical
// violation denies. Otherwise a high violation or any condition needs
// attention: conditions without a high violation yield conditional, and a
// high violation yields pending-approval whether or not conditions exist.
func Decide(violations []Violation, conditions []string) governance.ComplianceResult {
	var critical, high bool
	for _, v := range violations {
		switch v.Severity {
		case governance.SeverityCritical:
			critical = true
		case governance.SeverityHigh:
			high = true
		}
	}

	switch {
	case critical:
		return governance.ResultDenied
	case high || len(conditions) > 0:
		if len(conditions) > 0 && !high {
			return governance.ResultConditional
		}
		return governance.ResultPendingApproval
	default:
		return governance.ResultAllowed
	}
}
