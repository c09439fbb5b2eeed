package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BacklinkOutreach/internal/domain"
)

type stubLog map[string]int

func (s stubLog) SentOn(_ context.Context, day string) ([]domain.SentRecord, error) {
	if n, ok := s["error"]; ok && n > 0 {
		return nil, errors.New("boom")
	}
	return make([]domain.SentRecord, s[day]), nil
}

func TestTrackerRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		limit     int
		sent      int
		remaining int
		exhausted bool
	}{
		{name: "fresh day", limit: 25, sent: 0, remaining: 25},
		{name: "partially used", limit: 25, sent: 20, remaining: 5},
		{name: "exactly used", limit: 5, sent: 5, remaining: 0, exhausted: true},
		{name: "limit lowered below sends", limit: 3, sent: 5, remaining: -2, exhausted: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tracker := NewTracker(tc.limit, stubLog{"2025-03-01": tc.sent, "2025-02-28": 100})
			status, err := tracker.Remaining(context.Background(), "2025-03-01")
			require.NoError(t, err)

			assert.Equal(t, tc.limit, status.Limit)
			assert.Equal(t, tc.sent, status.SentToday)
			assert.Equal(t, tc.remaining, status.Remaining)
			assert.LessOrEqual(t, status.Remaining, tc.limit)
			assert.Equal(t, tc.exhausted, status.Exhausted())
		})
	}
}

func TestTrackerPropagatesLedgerError(t *testing.T) {
	t.Parallel()

	_, err := NewTracker(5, stubLog{"error": 1}).Remaining(context.Background(), "2025-03-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2025-03-01")
}
