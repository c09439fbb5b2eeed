package domain

import "time"

// DayLayout formats the UTC calendar day used for quota and storage partitioning.
const DayLayout = "2006-01-02"

// Day returns the UTC calendar day of t.
func Day(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// Queue is the per-day batch of generated messages plus run metadata.
type Queue struct {
	RunID           string    `json:"runId,omitempty"`
	GeneratedAt     time.Time `json:"generated"`
	Mode            Mode      `json:"mode"`
	DailyLimit      int       `json:"dailyLimit"`
	SentToday       int       `json:"sentToday"`
	EmailsGenerated int       `json:"emailsGenerated"`
	Emails          []Message `json:"emails"`
}
