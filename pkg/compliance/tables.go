package compliance

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/sovereign/pkg/governance"
)

// Tables is the full set of compliance rules.
type Tables struct {
	GeoRestrictions   []GeoRestriction   `yaml:"geo_restrictions"`
	ResidencyPolicies []ResidencyPolicy  `yaml:"residency_policies"`
	SectorModes       []SectorModeConfig `yaml:"sector_modes"`
}

// UnmarshalYAML decodes a residency policy, treating a missing enabled
// field as true.
func (p *ResidencyPolicy) UnmarshalYAML(node *yaml.Node) error {
	type plain ResidencyPolicy
	raw := plain{Enabled: true}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = ResidencyPolicy(raw)
	return nil
}

// LoadTables parses YAML tables. The result is normalized and validated.
func LoadTables(r io.Reader) (Tables, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t Tables
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tables{}, fmt.Errorf("failed to parse compliance tables: %w", err)
	}

	t.normalize()
	if err := t.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// LoadTablesFile reads tables from a YAML file.
func LoadTablesFile(path string) (Tables, error) {
	// #nosec G304 - path comes from operator configuration
	f, err := os.Open(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to open compliance tables: %w", err)
	}
	defer f.Close()

	t, err := LoadTables(f)
	if err != nil {
		return Tables{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Merge returns t with every entry of other upserted by key: country code,
// policy ID and sector mode respectively.
func (t Tables) Merge(other Tables) Tables {
	out := Tables{
		GeoRestrictions:   append([]GeoRestriction(nil), t.GeoRestrictions...),
		ResidencyPolicies: append([]ResidencyPolicy(nil), t.ResidencyPolicies...),
		SectorModes:       append([]SectorModeConfig(nil), t.SectorModes...),
	}

	for _, g := range other.GeoRestrictions {
		replaced := false
		for i := range out.GeoRestrictions {
			if out.GeoRestrictions[i].CountryCode == g.CountryCode {
				out.GeoRestrictions[i] = g
				replaced = true
				break
			}
		}
		if !replaced {
			out.GeoRestrictions = append(out.GeoRestrictions, g)
		}
	}

	for _, p := range other.ResidencyPolicies {
		replaced := false
		for i := range out.ResidencyPolicies {
			if out.ResidencyPolicies[i].ID == p.ID {
				out.ResidencyPolicies[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out.ResidencyPolicies = append(out.ResidencyPolicies, p)
		}
	}

	for _, s := range other.SectorModes {
		replaced := false
		for i := range out.SectorModes {
			if out.SectorModes[i].Mode == s.Mode {
				out.SectorModes[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			out.SectorModes = append(out.SectorModes, s)
		}
	}

	return out
}

// Validate checks every table entry.
func (t Tables) Validate() error {
	seenGeo := make(map[string]bool)
	for i, g := range t.GeoRestrictions {
		if err := g.validate(); err != nil {
			return fmt.Errorf("geo_restrictions[%d]: %w", i, err)
		}
		if seenGeo[g.CountryCode] {
			return fmt.Errorf("geo_restrictions[%d]: %w: duplicate country %s", i, governance.ErrInvalidValue, g.CountryCode)
		}
		seenGeo[g.CountryCode] = true
	}

	seenPolicy := make(map[string]bool)
	for i, p := range t.ResidencyPolicies {
		if err := p.validate(); err != nil {
			return fmt.Errorf("residency_policies[%d]: %w", i, err)
		}
		if seenPolicy[p.ID] {
			return fmt.Errorf("residency_policies[%d]: %w: duplicate policy %s", i, governance.ErrInvalidValue, p.ID)
		}
		seenPolicy[p.ID] = true
	}

	seenSector := make(map[governance.SectorMode]bool)
	for i, s := range t.SectorModes {
		if err := s.validate(); err != nil {
			return fmt.Errorf("sector_modes[%d]: %w", i, err)
		}
		if seenSector[s.Mode] {
			return fmt.Errorf("sector_modes[%d]: %w: duplicate sector mode %s", i, governance.ErrInvalidValue, s.Mode)
		}
		seenSector[s.Mode] = true
	}
	return nil
}

func (t *Tables) normalize() {
	for i := range t.GeoRestrictions {
		t.GeoRestrictions[i].normalize()
	}
	for i := range t.ResidencyPolicies {
		t.ResidencyPolicies[i].normalize()
	}
}

func (g *GeoRestriction) normalize() {
	g.CountryCode = countryCode(g.CountryCode)
}

func (g GeoRestriction) validate() error {
	if g.CountryCode == "" {
		return fmt.Errorf("%w: country_code is required", governance.ErrInvalidValue)
	}
	if _, err := governance.ParseRestrictionLevel(string(g.Level)); err != nil {
		return err
	}
	for _, m := range g.AllowedSectorModes {
		if _, err := governance.ParseSectorMode(string(m)); err != nil {
			return err
		}
	}
	return nil
}

func (p *ResidencyPolicy) normalize() {
	p.AllowedCountries = countryCodes(p.AllowedCountries)
	p.BlockedCountries = countryCodes(p.BlockedCountries)
	types := make([]string, len(p.DataTypes))
	for i, dt := range p.DataTypes {
		types[i] = dataType(dt)
	}
	p.DataTypes = types
}

func (p ResidencyPolicy) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", governance.ErrInvalidValue)
	}
	if len(p.DataTypes) == 0 {
		return fmt.Errorf("%w: policy %s must cover at least one data type", governance.ErrInvalidValue, p.ID)
	}
	return nil
}

func (s SectorModeConfig) validate() error {
	if _, err := governance.ParseSectorMode(string(s.Mode)); err != nil {
		return err
	}
	if _, err := governance.ParseSecurityLevel(string(s.SecurityLevel)); err != nil {
		return err
	}
	if s.RetentionYears < 0 {
		return fmt.Errorf("%w: retention_years must be non-negative", governance.ErrInvalidValue)
	}
	return nil
}

func countryCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func countryCodes(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = countryCode(c)
	}
	return out
}

func dataType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
