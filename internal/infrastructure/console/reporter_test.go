package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"BacklinkOutreach/internal/domain"
)

func sampleQueue() domain.Queue {
	return domain.Queue{
		GeneratedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Mode:        domain.ModeDryRun,
		DailyLimit:  25,
		SentToday:   3,
		Emails: []domain.Message{
			{
				Subject: "Quick note about your roundup on best seo tools",
				Metadata: domain.MessageMetadata{
					Domain: "a.com", URL: "https://a.com/best-seo-tools", DomainRank: 71, Competitor: "rival.com",
				},
			},
			{
				Subject:  "Quick note about your guide on how to rank",
				Metadata: domain.MessageMetadata{Domain: "b.com", URL: "https://b.com/how-to-rank", DomainRank: 40},
			},
		},
	}
}

func TestDryRunReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewReporter(&buf, false, "backlinkoutreach", nil).DryRun(sampleQueue(), "/data/2025-03-01/outreach-queue.json")
	out := buf.String()

	assert.Contains(t, out, "DRY RUN — 2 emails generated (not sent)")
	assert.Contains(t, out, "a.com")
	assert.Contains(t, out, "71")
	assert.Contains(t, out, "rival.com")
	assert.Contains(t, out, "Quick note about your guide on how to rank")
	assert.Contains(t, out, "Queue saved to /data/2025-03-01/outreach-queue.json")
	assert.Contains(t, out, "backlinkoutreach --send")
}

func TestReviewReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewReporter(&buf, false, "backlinkoutreach", nil).Review(sampleQueue())
	out := buf.String()

	assert.Contains(t, out, "PENDING OUTREACH QUEUE (2 emails")
	assert.Contains(t, out, "https://b.com/how-to-rank")
}

func TestEmptyQueueSkipsTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewReporter(&buf, false, "backlinkoutreach", nil).DryRun(domain.Queue{}, "q.json")

	assert.Contains(t, buf.String(), "0 emails generated")
	assert.NotContains(t, buf.String(), "COMPETITOR")
}

func TestShortMessages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewReporter(&buf, false, "backlinkoutreach", nil)

	r.NoPendingQueue("2025-03-01")
	r.QuotaExhausted(25, 25)
	r.SendSummary(sampleQueue(), 1, 1, 1)

	out := buf.String()
	assert.Contains(t, out, "No pending queue for 2025-03-01")
	assert.Contains(t, out, "Daily limit reached (25/25)")
	assert.Contains(t, out, "SEND MODE — 2 emails in queue")
	assert.Contains(t, out, "1 deliveries failed")
}
