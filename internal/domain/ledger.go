package domain

import "time"

// SentRecord is one send event. Records are never rewritten or removed.
type SentRecord struct {
	Domain    string    `json:"domain"`
	URL       string    `json:"url"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordPolicy decides which delivery attempts end up in the sent log.
type RecordPolicy string

const (
	// RecordOptimistic records every attempted message whatever the delivery outcome.
	RecordOptimistic RecordPolicy = "optimistic"
	// RecordConfirmed records only messages the transport accepted.
	RecordConfirmed RecordPolicy = "confirmed"
)

// Valid reports whether p is a known policy.
func (p RecordPolicy) Valid() bool {
	return p == RecordOptimistic || p == RecordConfirmed
}

// ShouldRecord applies the policy to a single delivery result.
func (p RecordPolicy) ShouldRecord(deliveryErr error) bool {
	if p == RecordOptimistic {
		return true
	}
	return deliveryErr == nil
}
