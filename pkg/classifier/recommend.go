package classifier

import "mercator-hq/sovereign/pkg/governance"

var levelRecommendations = map[governance.Classification][]string{
	governance.ClassificationHighlySensitive: {
		"Require owner-only access",
		"Apply retention of 90 days or less",
		"Encrypt with a tenant-isolated key",
		"Audit every access",
	},
	governance.ClassificationSensitive: {
		"Restrict access to analyst and admin roles",
		"Encrypt at rest",
		"Audit every access",
	},
	governance.ClassificationNormal: {
		"Standard handling applies",
	},
}

var categoryRecommendations = map[governance.Category][]string{
	governance.CategoryPersonal:       {"Minimize collection and honor data subject requests"},
	governance.CategoryFinancial:      {"Mask account numbers in displays and exports"},
	governance.CategoryHealth:         {"Limit processing to treatment and care purposes"},
	governance.CategoryAuthentication: {"Never log credentials", "Rotate exposed secrets immediately"},
	governance.CategoryBusiness:       {"Share only under a confidentiality agreement"},
	governance.CategoryTechnical:      {"Strip infrastructure details before sharing externally"},
}

// Recommendations returns handling advice for a classification and
// category. Level advice comes first. The output is deterministic.
func Recommendations(level governance.Classification, category governance.Category) []string {
	out := make([]string, 0, 6)
	out = append(out, levelRecommendations[level]...)
	out = append(out, categoryRecommendations[category]...)
	return out
}
