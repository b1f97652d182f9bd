package governance

import (
	"fmt"
	"time"
)

// Classification is the sensitivity tier of a piece of data.
type Classification string

const (
	// ClassificationNormal is data with no special handling requirements.
	ClassificationNormal Classification = "normal"
	// ClassificationSensitive is data that must be encrypted and access restricted.
	ClassificationSensitive Classification = "sensitive"
	// ClassificationHighlySensitive is data that requires tenant-isolated
	// encryption and owner-level access.
	ClassificationHighlySensitive Classification = "highly-sensitive"
)

// Classifications lists every classification level, lowest priority first.
var Classifications = []Classification{
	ClassificationNormal,
	ClassificationSensitive,
	ClassificationHighlySensitive,
}

// Priority returns the precedence of the classification.
// highly-sensitive(3) > sensitive(2) > normal(1); unknown values are 0.
func (c Classification) Priority() int {
	switch c {
	case ClassificationNormal:
		return 1
	case ClassificationSensitive:
		return 2
	case ClassificationHighlySensitive:
		return 3
	default:
		return 0
	}
}

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	return c.Priority() > 0
}

// ParseClassification converts s to a Classification.
func ParseClassification(s string) (Classification, error) {
	c := Classification(s)
	if !c.Valid() {
		return "", invalidValue("classification", s)
	}
	return c, nil
}

// Category is the subject-matter tag of a piece of data.
type Category string

const (
	CategoryPersonal       Category = "personal"
	CategoryFinancial      Category = "financial"
	CategoryHealth         Category = "health"
	CategoryAuthentication Category = "authentication"
	CategoryBusiness       Category = "business"
	CategoryTechnical      Category = "technical"
	CategoryPublic         Category = "public"
	CategoryInternal       Category = "internal"
)

var categories = map[Category]bool{
	CategoryPersonal:       true,
	CategoryFinancial:      true,
	CategoryHealth:         true,
	CategoryAuthentication: true,
	CategoryBusiness:       true,
	CategoryTechnical:      true,
	CategoryPublic:         true,
	CategoryInternal:       true,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return categories[c]
}

// ParseCategory converts s to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", invalidValue("category", s)
	}
	return c, nil
}

// StorageMode describes how a record is stored at rest.
type StorageMode string

const (
	StorageStandard          StorageMode = "standard"
	StorageEncrypted         StorageMode = "encrypted"
	StorageEncryptedIsolated StorageMode = "encrypted-isolated"
)

// Valid reports whether m is a known storage mode.
func (m StorageMode) Valid() bool {
	switch m {
	case StorageStandard, StorageEncrypted, StorageEncryptedIsolated:
		return true
	}
	return false
}

// ParseStorageMode converts s to a StorageMode.
func ParseStorageMode(s string) (StorageMode, error) {
	m := StorageMode(s)
	if !m.Valid() {
		return "", invalidValue("storage mode", s)
	}
	return m, nil
}

// ProcessingMode describes what processing is permitted on a record.
type ProcessingMode string

const (
	ProcessingUnrestricted     ProcessingMode = "unrestricted"
	ProcessingRestricted       ProcessingMode = "restricted"
	ProcessingHighlyRestricted ProcessingMode = "highly-restricted"
)

// Valid reports whether m is a known processing mode.
func (m ProcessingMode) Valid() bool {
	switch m {
	case ProcessingUnrestricted, ProcessingRestricted, ProcessingHighlyRestricted:
		return true
	}
	return false
}

// ParseProcessingMode converts s to a ProcessingMode.
func ParseProcessingMode(s string) (ProcessingMode, error) {
	m := ProcessingMode(s)
	if !m.Valid() {
		return "", invalidValue("processing mode", s)
	}
	return m, nil
}

// RetentionPolicy is how long a record may be kept after it is stored.
type RetentionPolicy string

const (
	RetentionIndefinite RetentionPolicy = "indefinite"
	RetentionOneYear    RetentionPolicy = "1-year"
	Retention90Days     RetentionPolicy = "90-days"
	Retention30Days     RetentionPolicy = "30-days"
	Retention7Days      RetentionPolicy = "7-days"
)

// Valid reports whether r is a known retention policy.
func (r RetentionPolicy) Valid() bool {
	switch r {
	case RetentionIndefinite, RetentionOneYear, Retention90Days, Retention30Days, Retention7Days:
		return true
	}
	return false
}

// ExpiresAt returns the expiry of a record created at t.
// The boolean is false for indefinite (and unknown) retention.
//
// Day-based retentions add calendar days; 1-year adds one calendar year.
func (r RetentionPolicy) ExpiresAt(t time.Time) (time.Time, bool) {
	switch r {
	case Retention7Days:
		return t.AddDate(0, 0, 7), true
	case Retention30Days:
		return t.AddDate(0, 0, 30), true
	case Retention90Days:
		return t.AddDate(0, 0, 90), true
	case RetentionOneYear:
		return t.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// ParseRetentionPolicy converts s to a RetentionPolicy.
func ParseRetentionPolicy(s string) (RetentionPolicy, error) {
	r := RetentionPolicy(s)
	if !r.Valid() {
		return "", invalidValue("retention policy", s)
	}
	return r, nil
}

// RestrictionLevel is how strongly a country restricts data operations.
type RestrictionLevel string

const (
	RestrictionNone       RestrictionLevel = "none"
	RestrictionLimited    RestrictionLevel = "limited"
	RestrictionRestricted RestrictionLevel = "restricted"
	RestrictionProhibited RestrictionLevel = "prohibited"
)

// Valid reports whether l is a known restriction level.
func (l RestrictionLevel) Valid() bool {
	switch l {
	case RestrictionNone, RestrictionLimited, RestrictionRestricted, RestrictionProhibited:
		return true
	}
	return false
}

// ParseRestrictionLevel converts s to a RestrictionLevel.
func ParseRestrictionLevel(s string) (RestrictionLevel, error) {
	l := RestrictionLevel(s)
	if !l.Valid() {
		return "", invalidValue("restriction level", s)
	}
	return l, nil
}

// SectorMode is the operating posture of the requesting deployment.
type SectorMode string

const (
	SectorCivilian               SectorMode = "civilian"
	SectorGovernment             SectorMode = "government"
	SectorMilitary               SectorMode = "military"
	SectorSecurity               SectorMode = "security"
	SectorCriticalInfrastructure SectorMode = "critical-infrastructure"
)

// SectorModes lists every sector mode.
var SectorModes = []SectorMode{
	SectorCivilian,
	SectorGovernment,
	SectorMilitary,
	SectorSecurity,
	SectorCriticalInfrastructure,
}

// Valid reports whether m is a known sector mode.
func (m SectorMode) Valid() bool {
	for _, known := range SectorModes {
		if m == known {
			return true
		}
	}
	return false
}

// ParseSectorMode converts s to a SectorMode.
func ParseSectorMode(s string) (SectorMode, error) {
	m := SectorMode(s)
	if !m.Valid() {
		return "", invalidValue("sector mode", s)
	}
	return m, nil
}

// SecurityLevel is the security bar a sector mode imposes.
type SecurityLevel string

const (
	SecurityStandard     SecurityLevel = "standard"
	SecurityConfidential SecurityLevel = "confidential"
	SecuritySecret       SecurityLevel = "secret"
	SecurityTopSecret    SecurityLevel = "top-secret"
	SecurityCritical     SecurityLevel = "critical"
)

// Valid reports whether l is a known security level.
func (l SecurityLevel) Valid() bool {
	switch l {
	case SecurityStandard, SecurityConfidential, SecuritySecret, SecurityTopSecret, SecurityCritical:
		return true
	}
	return false
}

// Elevated reports whether the level mandates extra handling conditions.
func (l SecurityLevel) Elevated() bool {
	return l == SecurityTopSecret || l == SecurityCritical
}

// ParseSecurityLevel converts s to a SecurityLevel.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	l := SecurityLevel(s)
	if !l.Valid() {
		return "", invalidValue("security level", s)
	}
	return l, nil
}

// Severity ranks a compliance violation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ComplianceResult is the outcome of a compliance evaluation.
type ComplianceResult string

const (
	ResultAllowed         ComplianceResult = "allowed"
	ResultDenied          ComplianceResult = "denied"
	ResultConditional     ComplianceResult = "conditional"
	ResultPendingApproval ComplianceResult = "pending-approval"
)

// Valid reports whether r is a known compliance result.
func (r ComplianceResult) Valid() bool {
	switch r {
	case ResultAllowed, ResultDenied, ResultConditional, ResultPendingApproval:
		return true
	}
	return false
}

func invalidValue(kind, value string) error {
	return fmt.Errorf("%w: unknown %s %q", ErrInvalidValue, kind, value)
}
