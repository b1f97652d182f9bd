package classifier

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/sovereign/pkg/governance"
)

// DefaultRules returns the built-in rule set in registration order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "ssn",
			Name:     "US Social Security Number",
			Patterns: []string{`\b\d{3}-\d{2}-\d{4}\b`},
			Keywords: []string{"social security"},
			Category: governance.CategoryPersonal,
			Level:    governance.ClassificationHighlySensitive,
			Enabled:  true,
		},
		{
			ID:       "credit-card",
			Name:     "Payment card number",
			Patterns: []string{`\b(?:\d{4}[\s-]?){3}\d{4}\b`},
			Keywords: []string{"credit card", "card number", "cvv"},
			Category: governance.CategoryFinancial,
			Level:    governance.ClassificationHighlySensitive,
			Enabled:  true,
		},
		{
			ID:       "credentials",
			Name:     "Credentials and secrets",
			Patterns: []string{`(?i)(password|passwd|secret|api[_-]?key|token)\s*[:=]\s*\S+`},
			Keywords: []string{"password", "api key", "private key"},
			Category: governance.CategoryAuthentication,
			Level:    governance.ClassificationHighlySensitive,
			Enabled:  true,
		},
		{
			ID:       "health",
			Name:     "Health information",
			Keywords: []string{"diagnosis", "medical record", "patient", "prescription"},
			Category: governance.CategoryHealth,
			Level:    governance.ClassificationHighlySensitive,
			Enabled:  true,
		},
		{
			ID:       "email",
			Name:     "Email address",
			Patterns: []string{`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`},
			Category: governance.CategoryPersonal,
			Level:    governance.ClassificationSensitive,
			Enabled:  true,
		},
		{
			ID:       "phone",
			Name:     "Phone number",
			Patterns: []string{`(?:\+\d{1,3}[\s.-]?)?\(?\b\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}\b`},
			Keywords: []string{"phone number"},
			Category: governance.CategoryPersonal,
			Level:    governance.ClassificationSensitive,
			Enabled:  true,
		},
		{
			ID:       "bank-account",
			Name:     "Bank account (IBAN)",
			Patterns: []string{`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`},
			Keywords: []string{"iban", "account number", "routing number"},
			Category: governance.CategoryFinancial,
			Level:    governance.ClassificationSensitive,
			Enabled:  true,
		},
		{
			ID:       "business-confidential",
			Name:     "Business confidential",
			Keywords: []string{"confidential", "proprietary", "trade secret", "internal only"},
			Category: governance.CategoryBusiness,
			Level:    governance.ClassificationSensitive,
			Enabled:  true,
		},
		{
			ID:       "technical",
			Name:     "Technical details",
			Patterns: []string{`\b(?:\d{1,3}\.){3}\d{1,3}\b`},
			Keywords: []string{"stack trace", "server config"},
			Category: governance.CategoryTechnical,
			Level:    governance.ClassificationNormal,
			Enabled:  true,
		},
		{
			ID:       "public",
			Name:     "Public information",
			Keywords: []string{"public", "published", "press release"},
			Category: governance.CategoryPublic,
			Level:    governance.ClassificationNormal,
			Enabled:  true,
		},
	}
}

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Keywords []string `yaml:"keywords"`
	Category string   `yaml:"category"`
	Level    string   `yaml:"level"`
	Enabled  *bool    `yaml:"enabled"`
}

// LoadRules parses a YAML rule document. Rules are enabled unless the
// document says otherwise.
//
//	rules:
//	  - id: employee-id
//	    name: Employee identifier
//	    patterns: ['\bEMP-\d{6}\b']
//	    category: personal
//	    level: sensitive
func LoadRules(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file ruleFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, def := range file.Rules {
		level, err := governance.ParseClassification(def.Level)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] (%s): %w", i, def.ID, err)
		}
		category, err := governance.ParseCategory(def.Category)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] (%s): %w", i, def.ID, err)
		}
		enabled := true
		if def.Enabled != nil {
			enabled = *def.Enabled
		}
		rules = append(rules, Rule{
			ID:       def.ID,
			Name:     def.Name,
			Patterns: def.Patterns,
			Keywords: def.Keywords,
			Category: category,
			Level:    level,
			Enabled:  enabled,
		})
	}
	return rules, nil
}

// LoadRulesFile reads rules from a YAML file.
func LoadRulesFile(path string) ([]Rule, error) {
	// #nosec G304 - path comes from operator configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	rules, err := LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}
