package ports

import (
	"context"
	"time"

	"BacklinkOutreach/internal/domain"
)

// OpportunityFeed returns the latest ranked opportunity batch.
type OpportunityFeed interface {
	Name() string
	Latest(ctx context.Context) (domain.OpportunityBatch, error)
}

// Ledger is the durable record of opt-outs and every send event.
type Ledger interface {
	IsOptedOut(ctx context.Context, domain string) (bool, error)
	AddOptOut(ctx context.Context, domain string) (bool, error)
	OptOuts(ctx context.Context) (map[string]struct{}, error)
	AllSentDomains(ctx context.Context) (map[string]struct{}, error)
	SentOn(ctx context.Context, day string) ([]domain.SentRecord, error)
	RecordSent(ctx context.Context, domain, url, day string, at time.Time) error
	Close() error
}

// QueueStore persists one queue artifact per day.
type QueueStore interface {
	Save(ctx context.Context, day string, queue domain.Queue) (string, error)
	// Load returns found=false when no artifact exists for the day.
	Load(ctx context.Context, day string) (queue domain.Queue, found bool, err error)
	Path(day string) string
}

// Sender delivers a single message.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg domain.Message) error
}

// Reporter renders run outcomes for the operator.
type Reporter interface {
	DryRun(queue domain.Queue, queuePath string)
	Review(queue domain.Queue)
	NoPendingQueue(day string)
	SendSummary(queue domain.Queue, delivered, failed, recorded int)
	QuotaExhausted(sentToday, limit int)
}

// MetricsSink receives run counters once per run.
type MetricsSink interface {
	Flush(day string, snapshot RunSnapshot) error
}

// RunSnapshot is the set of numbers a run reports to metrics.
type RunSnapshot struct {
	Mode           domain.Mode
	FeedSize       int
	Eligible       int
	Generated      int
	Delivered      int
	Failed         int
	Recorded       int
	SentToday      int
	DailyLimit     int
	QuotaRemaining int
	FinishedAt     time.Time
}
