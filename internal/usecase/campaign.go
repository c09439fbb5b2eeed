package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
	"BacklinkOutreach/internal/quota"
	"BacklinkOutreach/internal/selector"
)

// MessageComposer renders one opportunity into a message.
type MessageComposer interface {
	Compose(opp domain.Opportunity) domain.Message
}

// CampaignDeps wires all driven adapters and run settings into the campaign.
type CampaignDeps struct {
	Feed     ports.OpportunityFeed
	Ledger   ports.Ledger
	Queue    ports.QueueStore
	Sender   ports.Sender
	Reporter ports.Reporter
	// Metrics is optional.
	Metrics  ports.MetricsSink
	Composer MessageComposer
	// Limiter spaces deliveries; nil means no spacing.
	Limiter *rate.Limiter
	Clock   func() time.Time
	Logger  *slog.Logger

	RunID        string
	DailyLimit   int
	RecordPolicy domain.RecordPolicy
	// DryRunGuard downgrades send to dry-run while set.
	DryRunGuard bool
}

// Result summarizes one run.
type Result struct {
	Mode           domain.Mode
	Queue          *domain.Queue
	QueuePath      string
	Delivered      int
	Failed         int
	Recorded       int
	QuotaExhausted bool
	NoPendingQueue bool
}

// Campaign is the mode controller: it runs exactly one of dry-run, review or send.
type Campaign struct {
	feed     ports.OpportunityFeed
	ledger   ports.Ledger
	queue    ports.QueueStore
	sender   ports.Sender
	reporter ports.Reporter
	metrics  ports.MetricsSink
	composer MessageComposer
	limiter  *rate.Limiter
	clock    func() time.Time
	logger   *slog.Logger

	runID       string
	dailyLimit  int
	policy      domain.RecordPolicy
	dryRunGuard bool
}

// NewCampaign constructs the orchestration component.
func NewCampaign(deps CampaignDeps) *Campaign {
	c := &Campaign{
		feed:        deps.Feed,
		ledger:      deps.Ledger,
		queue:       deps.Queue,
		sender:      deps.Sender,
		reporter:    deps.Reporter,
		metrics:     deps.Metrics,
		composer:    deps.Composer,
		limiter:     deps.Limiter,
		clock:       deps.Clock,
		logger:      deps.Logger,
		runID:       deps.RunID,
		dailyLimit:  deps.DailyLimit,
		policy:      deps.RecordPolicy,
		dryRunGuard: deps.DryRunGuard,
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if !c.policy.Valid() {
		c.policy = domain.RecordConfirmed
	}
	return c
}

// EffectiveMode applies the dry-run guard to the requested mode.
func (c *Campaign) EffectiveMode(requested domain.Mode) domain.Mode {
	if requested == domain.ModeSend && c.dryRunGuard {
		return domain.ModeDryRun
	}
	return requested
}

// Run executes one invocation in the requested mode. Day is the UTC day the
// caller opened its run log for; the queue and quota are keyed by it.
func (c *Campaign) Run(ctx context.Context, requested domain.Mode, day string) (Result, error) {
	mode := c.EffectiveMode(requested)
	if mode != requested {
		c.logger.Warn("dry-run guard is on, send downgraded to dry-run; set OUTREACH_DRY_RUN=false to send")
	}

	c.logger.Info("outreach run", "mode", mode, "day", day, "daily_limit", c.dailyLimit)

	switch mode {
	case domain.ModeReview:
		return c.review(ctx, day)
	case domain.ModeDryRun, domain.ModeSend:
		return c.generate(ctx, requested, mode, day)
	default:
		return Result{}, fmt.Errorf("unknown mode %q", mode)
	}
}

func (c *Campaign) review(ctx context.Context, day string) (Result, error) {
	queue, found, err := c.queue.Load(ctx, day)
	if err != nil {
		return Result{}, fmt.Errorf("load queue: %w", err)
	}

	result := Result{Mode: domain.ModeReview, QueuePath: c.queue.Path(day)}
	if !found {
		c.reporter.NoPendingQueue(day)
		result.NoPendingQueue = true
		return result, nil
	}

	c.reporter.Review(queue)
	result.Queue = &queue
	return result, nil
}

// generate builds today's queue and, in send mode, delivers it. The quota
// check uses the requested mode so an exhausted send never touches the queue,
// even when the guard would have downgraded it.
func (c *Campaign) generate(ctx context.Context, requested, mode domain.Mode, day string) (Result, error) {
	result := Result{Mode: mode}
	snapshot := ports.RunSnapshot{Mode: mode, DailyLimit: c.dailyLimit}

	status, err := quota.NewTracker(c.dailyLimit, c.ledger).Remaining(ctx, day)
	if err != nil {
		return Result{}, err
	}
	snapshot.SentToday = status.SentToday
	snapshot.QuotaRemaining = status.Remaining

	if requested == domain.ModeSend && status.Exhausted() {
		c.logger.Info("daily limit reached, nothing will be sent", "sent_today", status.SentToday, "daily_limit", status.Limit)
		c.reporter.QuotaExhausted(status.SentToday, status.Limit)
		result.Mode = requested
		result.QuotaExhausted = true
		snapshot.Mode = requested
		result.Queue = &domain.Queue{Mode: requested, DailyLimit: c.dailyLimit, SentToday: status.SentToday, Emails: []domain.Message{}}
		c.flush(day, snapshot)
		return result, nil
	}

	batch, err := c.feed.Latest(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load opportunities: %w", err)
	}
	snapshot.FeedSize = len(batch.Opportunities)

	optOuts, err := c.ledger.OptOuts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load opt-outs: %w", err)
	}
	sent, err := c.ledger.AllSentDomains(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load sent domains: %w", err)
	}

	selection := selector.Select(batch.Opportunities, optOuts, sent, status.Remaining, c.dailyLimit)
	snapshot.Eligible = len(selection.Eligible)
	c.logger.Info("eligible opportunities",
		"eligible", len(selection.Eligible),
		"total", batch.TotalOpportunities,
		"already_sent", len(sent),
		"opted_out", len(optOuts),
		"selected", len(selection.Selected))

	emails := make([]domain.Message, 0, len(selection.Selected))
	for _, opp := range selection.Selected {
		emails = append(emails, c.composer.Compose(opp))
	}
	snapshot.Generated = len(emails)

	queue := domain.Queue{
		RunID:           c.runID,
		GeneratedAt:     c.clock().UTC(),
		Mode:            mode,
		DailyLimit:      c.dailyLimit,
		SentToday:       status.SentToday,
		EmailsGenerated: len(emails),
		Emails:          emails,
	}
	path, err := c.queue.Save(ctx, day, queue)
	if err != nil {
		return Result{}, fmt.Errorf("save queue: %w", err)
	}
	result.Queue = &queue
	result.QueuePath = path

	if mode == domain.ModeDryRun {
		c.reporter.DryRun(queue, path)
		c.logger.Info("dry run complete", "queue", path, "emails", len(emails))
		c.flush(day, snapshot)
		return result, nil
	}

	if err := c.deliver(ctx, day, queue, &result); err != nil {
		return result, err
	}

	snapshot.Delivered = result.Delivered
	snapshot.Failed = result.Failed
	snapshot.Recorded = result.Recorded
	snapshot.SentToday = status.SentToday + result.Recorded
	snapshot.QuotaRemaining = status.Remaining - result.Recorded

	c.reporter.SendSummary(queue, result.Delivered, result.Failed, result.Recorded)
	c.logger.Info("send complete",
		"delivered", result.Delivered,
		"failed", result.Failed,
		"recorded", result.Recorded,
		"policy", c.policy)
	c.flush(day, snapshot)
	return result, nil
}

// deliver sends the queue in order. A failed delivery is isolated; a ledger
// write failure aborts the run.
func (c *Campaign) deliver(ctx context.Context, day string, queue domain.Queue, result *Result) error {
	c.logger.Info("sending", "emails", len(queue.Emails), "transport", c.sender.Name())

	for _, email := range queue.Emails {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for send slot: %w", err)
		}

		sendErr := c.sender.Send(ctx, email)
		if sendErr != nil {
			if errors.Is(sendErr, context.Canceled) || errors.Is(sendErr, context.DeadlineExceeded) {
				return fmt.Errorf("send to %s: %w", email.Metadata.Domain, sendErr)
			}
			result.Failed++
			c.logger.Warn("delivery failed", "domain", email.Metadata.Domain, "error", sendErr)
		} else {
			result.Delivered++
			c.logger.Info("delivered", "domain", email.Metadata.Domain, "subject", email.Subject)
		}

		if !c.policy.ShouldRecord(sendErr) {
			continue
		}
		if err := c.ledger.RecordSent(ctx, email.Metadata.Domain, email.Metadata.URL, day, c.clock()); err != nil {
			return fmt.Errorf("record sent %s: %w", email.Metadata.Domain, err)
		}
		result.Recorded++
	}
	return nil
}

func (c *Campaign) flush(day string, snapshot ports.RunSnapshot) {
	if c.metrics == nil {
		return
	}
	snapshot.FinishedAt = c.clock().UTC()
	if err := c.metrics.Flush(day, snapshot); err != nil {
		c.logger.Warn("write run metrics", "error", err)
	}
}
