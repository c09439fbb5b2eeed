package domain

import (
	"strings"
	"time"
)

// Opportunity is a page that links to a competitor and could link to us.
type Opportunity struct {
	Domain     string     `json:"domain"`
	URL        string     `json:"url"`
	DomainRank int        `json:"domainRank"`
	Competitor string     `json:"competitor"`
	Anchor     string     `json:"anchor,omitempty"`
	FirstSeen  *time.Time `json:"firstSeen,omitempty"`
}

// OpportunityBatch is the document written by the backlink discovery job.
type OpportunityBatch struct {
	TotalOpportunities int           `json:"totalOpportunities"`
	Opportunities      []Opportunity `json:"opportunities"`
}

// NormalizeDomain is the only form used for opt-out and sent-set lookups.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
