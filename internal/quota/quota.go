// Package quota derives how many messages may still go out on a given day.
package quota

import (
	"context"
	"fmt"

	"BacklinkOutreach/internal/domain"
)

// SentLog is the slice of the ledger the tracker needs.
type SentLog interface {
	SentOn(ctx context.Context, day string) ([]domain.SentRecord, error)
}

// Status is the quota window for one day.
type Status struct {
	Limit     int
	SentToday int
	// Remaining is Limit-SentToday and goes negative when the limit was lowered
	// after sends were already recorded.
	Remaining int
}

// Exhausted reports whether nothing more may be sent.
func (s Status) Exhausted() bool {
	return s.Remaining <= 0
}

// Tracker computes Status from the sent log.
type Tracker struct {
	limit int
	log   SentLog
}

// NewTracker binds the daily limit to a sent log.
func NewTracker(limit int, log SentLog) *Tracker {
	return &Tracker{limit: limit, log: log}
}

// Remaining counts the records dated day against the limit.
func (t *Tracker) Remaining(ctx context.Context, day string) (Status, error) {
	records, err := t.log.SentOn(ctx, day)
	if err != nil {
		return Status{}, fmt.Errorf("load sent records for %s: %w", day, err)
	}

	return Status{
		Limit:     t.limit,
		SentToday: len(records),
		Remaining: t.limit - len(records),
	}, nil
}
