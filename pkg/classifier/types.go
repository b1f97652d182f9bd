package classifier

import (
	"regexp"
	"strings"

	"mercator-hq/sovereign/pkg/governance"
)

// ConfidenceStep is the confidence added per matched rule.
const ConfidenceStep = 0.3

// Ordering selects the rule iteration order.
type Ordering string

const (
	// OrderInsertion visits rules in registration order.
	OrderInsertion Ordering = "insertion"
	// OrderRuleID visits rules by ascending ID.
	OrderRuleID Ordering = "rule-id"
)

// Valid reports whether o is a known ordering.
func (o Ordering) Valid() bool {
	return o == OrderInsertion || o == OrderRuleID
}

// Rule is a classification rule. Only Enabled may change after
// registration.
type Rule struct {
	ID       string                    `yaml:"id" json:"id"`
	Name     string                    `yaml:"name" json:"name"`
	Patterns []string                  `yaml:"patterns" json:"patterns,omitempty"`
	Keywords []string                  `yaml:"keywords" json:"keywords,omitempty"`
	Category governance.Category       `yaml:"category" json:"category"`
	Level    governance.Classification `yaml:"level" json:"level"`
	Enabled  bool                      `yaml:"enabled" json:"enabled"`
}

// Hints carries optional caller context.
type Hints struct {
	// Category is reported when nothing matches. Invalid values are ignored.
	Category governance.Category

	// DataType is the caller's declared data type, used only for logging.
	DataType string
}

// Result is the outcome of one classification.
type Result struct {
	Classification  governance.Classification `json:"classification"`
	Category        governance.Category       `json:"category"`
	Confidence      float64                   `json:"confidence"`
	MatchedRules    []string                  `json:"matched_rules"`
	MatchedKeywords []string                  `json:"matched_keywords"`
	Recommendations []string                  `json:"recommendations"`
}

// compiledRule is a registered rule with its usable patterns.
type compiledRule struct {
	rule     Rule
	patterns []*regexp.Regexp
	keywords []string
}

// match returns whether the rule matches text and, for keyword matches,
// the original keyword. lowered is strings.ToLower(text).
func (r *compiledRule) match(text, lowered string) (bool, string) {
	for _, re := range r.patterns {
		if re.MatchString(text) {
			return true, ""
		}
	}
	for i, kw := range r.keywords {
		if kw != "" && strings.Contains(lowered, kw) {
			return true, r.rule.Keywords[i]
		}
	}
	return false, ""
}

func copyRule(r Rule) Rule {
	r.Patterns = append([]string(nil), r.Patterns...)
	r.Keywords = append([]string(nil), r.Keywords...)
	return r
}
