package scrape

import (
	"strings"

	"jobscout-engine/internal/domain"
)

// FilterPolicy is built once from config at run start and never mutated.
type FilterPolicy struct {
	InclusionKeywords []string
	ExclusionKeywords []string
	RequireInclusion  bool
	ApplyExclusion    bool
}

// Apply annotates the record's VisaMentioned flag and decides whether to
// keep it. Exclusion wins over inclusion: a posting that mentions both a
// visa keyword and an EU-citizenship requirement is rejected.
func (p FilterPolicy) Apply(rec domain.JobRecord) (out domain.JobRecord, keep bool, reason string) {
	text := strings.ToLower(rec.Title + " " + rec.Description)

	rec.VisaMentioned = matchesAny(text, p.InclusionKeywords)

	if p.ApplyExclusion && matchesAny(text, p.ExclusionKeywords) {
		return rec, false, "exclusion_keyword"
	}
	if p.RequireInclusion && !rec.VisaMentioned {
		return rec, false, "no_inclusion_keyword"
	}
	return rec, true, ""
}

func matchesAny(lowerText string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lowerText, kw) {
			return true
		}
	}
	return false
}
