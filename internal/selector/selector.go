// Package selector filters the opportunity feed down to today's targets.
package selector

import "BacklinkOutreach/internal/domain"

// Selection is the outcome of one filtering pass.
type Selection struct {
	// Eligible keeps feed order and holds each domain once.
	Eligible []domain.Opportunity
	// Selected is the prefix of Eligible that fits the quota.
	Selected []domain.Opportunity
}

// Select drops opted-out, previously contacted and empty domains, collapses
// repeated domains to their first occurrence, and takes the greedy prefix of
// min(max(remaining, 0), limit) opportunities. Both sets hold normalized domains.
func Select(opps []domain.Opportunity, optOuts, sent map[string]struct{}, remaining, limit int) Selection {
	seen := make(map[string]struct{}, len(opps))
	eligible := make([]domain.Opportunity, 0, len(opps))

	for _, opp := range opps {
		d := domain.NormalizeDomain(opp.Domain)
		if d == "" {
			continue
		}
		if _, ok := optOuts[d]; ok {
			continue
		}
		if _, ok := sent[d]; ok {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		eligible = append(eligible, opp)
	}

	n := max(min(remaining, limit, len(eligible)), 0)

	return Selection{Eligible: eligible, Selected: eligible[:n:n]}
}
