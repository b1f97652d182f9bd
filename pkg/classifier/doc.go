// Package classifier assigns a sensitivity classification and a category to
// arbitrary text using an ordered set of regex and keyword rules.
//
// # Algorithm
//
// Enabled rules are visited in a fixed order (registration order by default,
// ascending rule ID with OrderRuleID). For each rule the compiled patterns
// are tried first; the first pattern that matches marks the rule as matched
// and its keywords are skipped. Otherwise the keywords are searched as
// case-insensitive substrings and the first hit is recorded.
//
// Each matched rule adds 0.3 to the confidence, saturating at 1.0. The
// reported classification and category move together, and only when a
// matched rule's level strictly outranks the current one, so among rules of
// the top level the first one visited decides the category.
//
// Text that matches nothing is classified normal with the hinted category
// (or internal) and zero confidence.
//
// # Bad Rules
//
// A pattern that fails to compile is logged and dropped when the rule is
// added. The rest of the rule still applies. Rule authors must avoid
// patterns with pathological run time; Go's RE2 engine guarantees linear
// matching, and callers bound input size.
package classifier
