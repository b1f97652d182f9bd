package classifier

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"mercator-hq/sovereign/pkg/governance"
)

// Classifier holds the rule set. It is safe for concurrent use.
type Classifier struct {
	mu       sync.RWMutex
	rules    []*compiledRule
	byID     map[string]*compiledRule
	ordering Ordering
	logger   *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for rule compilation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOrdering sets the rule iteration order.
func WithOrdering(o Ordering) Option {
	return func(c *Classifier) {
		if o.Valid() {
			c.ordering = o
		}
	}
}

// New creates an empty classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		byID:     make(map[string]*compiledRule),
		ordering: OrderInsertion,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "classifier")
	return c
}

// NewWithDefaults creates a classifier loaded with DefaultRules.
func NewWithDefaults(opts ...Option) (*Classifier, error) {
	c := New(opts...)
	for _, r := range DefaultRules() {
		if err := c.AddRule(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddRule registers a rule. Patterns that do not compile are logged and
// dropped; the remaining patterns and keywords still apply. A duplicate ID,
// empty ID or invalid level or category is an error.
func (c *Classifier) AddRule(rule Rule) error {
	if err := checkRuleFields(rule); err != nil {
		return err
	}

	compiled := &compiledRule{rule: copyRule(rule)}
	for _, p := range rule.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			c.logger.Warn("skipping invalid rule pattern",
				"rule_id", rule.ID,
				"pattern", p,
				"error", fmt.Errorf("%w: %v", governance.ErrInvalidRule, err),
			)
			continue
		}
		compiled.patterns = append(compiled.patterns, re)
	}
	compiled.keywords = make([]string, len(rule.Keywords))
	for i, kw := range rule.Keywords {
		compiled.keywords[i] = strings.ToLower(kw)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[rule.ID]; exists {
		return fmt.Errorf("%w: rule %s already registered", governance.ErrInvalidRule, rule.ID)
	}
	c.rules = append(c.rules, compiled)
	c.byID[rule.ID] = compiled
	if c.ordering == OrderRuleID {
		sort.SliceStable(c.rules, func(i, j int) bool { return c.rules[i].rule.ID < c.rules[j].rule.ID })
	}
	return nil
}

// ValidateRule checks a rule strictly, including every pattern. AddRule
// tolerates malformed patterns; this is for tooling that must report them.
func ValidateRule(rule Rule) error {
	if err := checkRuleFields(rule); err != nil {
		return err
	}
	var errs []error
	for _, p := range rule.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: rule %s: pattern %q: %v", governance.ErrInvalidRule, rule.ID, p, err))
		}
	}
	return errors.Join(errs...)
}

func checkRuleFields(rule Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", governance.ErrInvalidRule)
	}
	if !rule.Level.Valid() {
		return fmt.Errorf("%w: rule %s: unknown level %q", governance.ErrInvalidRule, rule.ID, rule.Level)
	}
	if !rule.Category.Valid() {
		return fmt.Errorf("%w: rule %s: unknown category %q", governance.ErrInvalidRule, rule.ID, rule.Category)
	}
	return nil
}

// SetEnabled enables or disables a rule. Rules are never removed.
func (c *Classifier) SetEnabled(id string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.byID[id]
	if !ok {
		return governance.NotFound("rule", id)
	}
	r.rule.Enabled = enabled
	return nil
}

// Rules returns a snapshot of the rules in iteration order.
func (c *Classifier) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = copyRule(r.rule)
	}
	return out
}

// Classify evaluates text against the enabled rules.
func (c *Classifier) Classify(text string, hints Hints) *Result {
	lowered := strings.ToLower(text)

	result := &Result{
		MatchedRules:    []string{},
		MatchedKeywords: []string{},
	}
	highest := 0

	c.mu.RLock()
	for _, r := range c.rules {
		if !r.rule.Enabled {
			continue
		}
		matched, keyword := r.match(text, lowered)
		if !matched {
			continue
		}
		result.MatchedRules = append(result.MatchedRules, r.rule.ID)
		if keyword != "" {
			result.MatchedKeywords = append(result.MatchedKeywords, keyword)
		}
		if p := r.rule.Level.Priority(); p > highest {
			highest = p
			result.Classification = r.rule.Level
			result.Category = r.rule.Category
		}
	}
	c.mu.RUnlock()

	if len(result.MatchedRules) == 0 {
		result.Classification = governance.ClassificationNormal
		result.Category = governance.CategoryInternal
		if hints.Category.Valid() {
			result.Category = hints.Category
		}
	} else {
		result.Confidence = math.Min(float64(len(result.MatchedRules))*ConfidenceStep, 1.0)
	}

	result.Recommendations = Recommendations(result.Classification, result.Category)

	c.logger.Debug("classified",
		"classification", result.Classification,
		"category", result.Category,
		"matched_rules", len(result.MatchedRules),
		"data_type", hints.DataType,
	)
	return result
}
