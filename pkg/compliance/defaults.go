package compliance

import "mercator-hq/sovereign/pkg/governance"

var (
	allSectors = []governance.SectorMode{
		governance.SectorCivilian,
		governance.SectorGovernment,
		governance.SectorMilitary,
		governance.SectorSecurity,
		governance.SectorCriticalInfrastructure,
	}
	nonDefenceSectors = []governance.SectorMode{
		governance.SectorCivilian,
		governance.SectorGovernment,
		governance.SectorCriticalInfrastructure,
	}
	euCountries = []string{
		"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI", "FR", "GR", "HR", "HU",
		"IE", "IT", "LT", "LU", "LV", "MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK",
	}
)

// DefaultTables returns the built-in compliance tables.
func DefaultTables() Tables {
	return Tables{
		GeoRestrictions:   defaultGeoRestrictions(),
		ResidencyPolicies: defaultResidencyPolicies(),
		SectorModes:       defaultSectorModes(),
	}
}

func defaultGeoRestrictions() []GeoRestriction {
	prohibited := func(code string) GeoRestriction {
		return GeoRestriction{
			CountryCode:       code,
			Level:             governance.RestrictionProhibited,
			SpecialConditions: []string{"comprehensive sanctions in force"},
		}
	}

	return []GeoRestriction{
		{
			CountryCode:        "US",
			Level:              governance.RestrictionNone,
			ApprovalRequired:   []string{string(governance.SectorMilitary)},
			AllowedSectorModes: allSectors,
		},
		{
			CountryCode:        "GB",
			Level:              governance.RestrictionNone,
			ApprovalRequired:   []string{string(governance.SectorMilitary), string(governance.SectorSecurity)},
			AllowedSectorModes: allSectors,
		},
		{
			CountryCode:        "DE",
			Level:              governance.RestrictionLimited,
			ApprovalRequired:   []string{string(governance.SectorGovernment)},
			AllowedSectorModes: nonDefenceSectors,
		},
		{
			CountryCode:        "FR",
			Level:              governance.RestrictionLimited,
			ApprovalRequired:   []string{string(governance.SectorGovernment)},
			AllowedSectorModes: nonDefenceSectors,
		},
		{
			CountryCode:        "IN",
			Level:              governance.RestrictionLimited,
			ApprovalRequired:   []string{string(governance.SectorGovernment), "bulk-export"},
			AllowedSectorModes: nonDefenceSectors,
		},
		{
			CountryCode:        "SA",
			Level:              governance.RestrictionRestricted,
			ApprovalRequired:   []string{string(governance.SectorCriticalInfrastructure)},
			AllowedSectorModes: nonDefenceSectors,
			SpecialConditions: []string{
				"data must remain within national borders unless approved by the regulator",
				"local data protection officer required",
			},
		},
		{
			CountryCode:        "CN",
			Level:              governance.RestrictionRestricted,
			BlockedOperations:  []string{"bulk-export"},
			AllowedSectorModes: []governance.SectorMode{governance.SectorCivilian},
			SpecialConditions: []string{
				"security assessment required before outbound transfer",
			},
		},
		prohibited("RU"),
		prohibited("KP"),
		prohibited("IR"),
	}
}

func defaultResidencyPolicies() []ResidencyPolicy {
	return []ResidencyPolicy{
		{
			ID:                 "eu-gdpr",
			Region:             "EU",
			AllowedCountries:   euCountries,
			BlockedCountries:   []string{"RU", "KP", "IR"},
			DataTypes:          []string{"personal", "health", "financial"},
			EncryptionRequired: true,
			CrossBorderAllowed: true,
			CrossBorderConditions: []string{
				"adequacy decision or standard contractual clauses required",
				"data processing agreement required",
			},
			Frameworks: []string{"GDPR"},
			Enabled:    true,
		},
		{
			ID:                 "in-government",
			Region:             "IN",
			AllowedCountries:   []string{"IN"},
			DataTypes:          []string{"government", "citizen-records"},
			EncryptionRequired: true,
			LocalStorageOnly:   true,
			Frameworks:         []string{"DPDP Act 2023", "MeitY Cloud Guidelines"},
			Enabled:            true,
		},
		{
			ID:                 "us-health",
			Region:             "US",
			DataTypes:          []string{"health"},
			EncryptionRequired: true,
			CrossBorderAllowed: false,
			Frameworks:         []string{"HIPAA"},
			Enabled:            true,
		},
		{
			ID:                 "sa-critical",
			Region:             "SA",
			AllowedCountries:   []string{"SA"},
			BlockedCountries:   []string{"RU", "KP", "IR"},
			DataTypes:          []string{"critical-infrastructure", "government"},
			EncryptionRequired: true,
			LocalStorageOnly:   true,
			Frameworks:         []string{"NCA ECC", "PDPL"},
			Enabled:            true,
		},
	}
}

func defaultSectorModes() []SectorModeConfig {
	return []SectorModeConfig{
		{
			Mode:               governance.SectorCivilian,
			SecurityLevel:      governance.SecurityStandard,
			RequiredFrameworks: []string{"ISO 27001"},
			AuditLevel:         "standard",
			AccessControlLevel: "role-based",
			EncryptionStandard: "AES-256",
			RetentionYears:     1,
		},
		{
			Mode:               governance.SectorGovernment,
			SecurityLevel:      governance.SecurityConfidential,
			RequiredFrameworks: []string{"ISO 27001", "NIST 800-53"},
			AdditionalRestrictions: []string{
				"government-cleared operators only",
			},
			AuditLevel:         "enhanced",
			AccessControlLevel: "attribute-based",
			EncryptionStandard: "AES-256-GCM",
			RetentionYears:     7,
		},
		{
			Mode:               governance.SectorMilitary,
			SecurityLevel:      governance.SecurityTopSecret,
			RequiredFrameworks: []string{"NIST 800-53 High", "DoD IL6"},
			AdditionalRestrictions: []string{
				"air-gapped processing required",
				"two-person integrity for key operations",
				"cleared personnel only",
			},
			AuditLevel:         "full",
			AccessControlLevel: "mandatory",
			EncryptionStandard: "AES-256-GCM with HSM-held keys",
			RetentionYears:     25,
		},
		{
			Mode:               governance.SectorSecurity,
			SecurityLevel:      governance.SecurityTopSecret,
			RequiredFrameworks: []string{"NIST 800-53 High"},
			AdditionalRestrictions: []string{
				"need-to-know access enforcement",
				"continuous monitoring required",
			},
			AuditLevel:         "full",
			AccessControlLevel: "mandatory",
			EncryptionStandard: "AES-256-GCM with HSM-held keys",
			RetentionYears:     10,
		},
		{
			Mode:               governance.SectorCriticalInfrastructure,
			SecurityLevel:      governance.SecurityCritical,
			RequiredFrameworks: []string{"IEC 62443", "NIS2"},
			AdditionalRestrictions: []string{
				"operational technology network segmentation required",
				"incident reporting within 24 hours",
			},
			AuditLevel:         "full",
			AccessControlLevel: "mandatory",
			EncryptionStandard: "AES-256-GCM",
			RetentionYears:     10,
		},
	}
}
