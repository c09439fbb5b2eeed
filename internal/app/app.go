package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"BacklinkOutreach/internal/composer"
	"BacklinkOutreach/internal/config"
	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/infrastructure/console"
	"BacklinkOutreach/internal/infrastructure/feed"
	"BacklinkOutreach/internal/infrastructure/metrics"
	"BacklinkOutreach/internal/infrastructure/sender"
	"BacklinkOutreach/internal/infrastructure/storage"
	"BacklinkOutreach/internal/infrastructure/transport"
	"BacklinkOutreach/internal/logging"
	"BacklinkOutreach/internal/ports"
	"BacklinkOutreach/internal/usecase"
)

// BinaryName is used in operator hints.
const BinaryName = "backlinkoutreach"

// Options carries the process-level collaborators.
type Options struct {
	// Stdout receives reports, Stderr receives log lines.
	Stdout io.Writer
	Stderr io.Writer
	Colors bool
	Clock  func() time.Time
}

// Application wires configs to use cases for one invocation.
type Application struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
	colors bool
	clock  func() time.Time
}

// New builds an application instance.
func New(cfg config.Config, opts Options) *Application {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Application{
		cfg:    cfg,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
		colors: opts.Colors,
		clock:  opts.Clock,
	}
}

// Run executes one campaign invocation. Dry-run and send hold the run lock and
// log to the day's run log; review only reads.
func (a *Application) Run(ctx context.Context, mode domain.Mode) (res usecase.Result, err error) {
	if err := a.cfg.Validate(mode); err != nil {
		return usecase.Result{}, err
	}

	now := a.clock()
	day := domain.Day(now)
	runID := uuid.NewString()

	logger := logging.NewRunLogger(a.cfg.Logging.Level, a.stderr, io.Discard)
	if mode.Generates() {
		lock, lockErr := storage.AcquireRunLock(a.cfg.Storage.Root, a.cfg.Storage.LockTTL, now)
		if lockErr != nil {
			return usecase.Result{}, lockErr
		}
		defer func() {
			if rerr := lock.Release(); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}()

		runLog, openErr := logging.OpenRunLog(a.cfg.Storage.Root, day)
		if openErr != nil {
			return usecase.Result{}, openErr
		}
		defer runLog.Close()
		logger = logging.NewRunLogger(a.cfg.Logging.Level, a.stderr, runLog)
	}
	logger = logger.With("run_id", runID)

	deps := usecase.CampaignDeps{
		Queue:        storage.NewFileQueueStore(a.cfg.Storage.Root),
		Reporter:     console.NewReporter(a.stdout, a.colors, BinaryName, logger.With("component", "console")),
		Composer:     composer.New(a.cfg.Outreach.Identity()),
		Limiter:      a.courtesyLimiter(),
		Clock:        a.clock,
		Logger:       logger.With("component", "campaign"),
		RunID:        runID,
		DailyLimit:   a.cfg.Outreach.DailyLimit,
		RecordPolicy: a.cfg.Outreach.RecordPolicy,
		DryRunGuard:  a.cfg.Outreach.DryRun,
	}

	// Review reads only the queue store, so the ledger stays closed.
	if mode.Generates() {
		ledger, openErr := storage.OpenLedger(ctx, a.cfg)
		if openErr != nil {
			return usecase.Result{}, fmt.Errorf("open ledger: %w", openErr)
		}
		defer ledger.Close()
		deps.Ledger = ledger

		client := a.transportClient(logger.With("component", "transport"))

		deps.Feed, err = a.resolveFeed(client, logger)
		if err != nil {
			return usecase.Result{}, err
		}
		deps.Sender, err = a.buildSender(day, client, logger)
		if err != nil {
			return usecase.Result{}, err
		}
		if a.cfg.Metrics.Enabled {
			deps.Metrics = metrics.NewTextfile(a.cfg.Storage.Root)
		}
	}

	return usecase.NewCampaign(deps).Run(ctx, mode, day)
}

// AddOptOuts adds every domain to the opt-out list and returns the ones that
// were not already present.
func (a *Application) AddOptOuts(ctx context.Context, domains []string) (added []string, err error) {
	if err := a.cfg.Validate(domain.ModeReview); err != nil {
		return nil, err
	}

	now := a.clock()
	lock, err := storage.AcquireRunLock(a.cfg.Storage.Root, a.cfg.Storage.LockTTL, now)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	runLog, err := logging.OpenRunLog(a.cfg.Storage.Root, domain.Day(now))
	if err != nil {
		return nil, err
	}
	defer runLog.Close()
	logger := logging.NewRunLogger(a.cfg.Logging.Level, a.stderr, runLog).With("component", "optout")

	ledger, err := storage.OpenLedger(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	for _, d := range domains {
		if domain.NormalizeDomain(d) == "" {
			continue
		}
		ok, err := ledger.AddOptOut(ctx, d)
		if err != nil {
			return added, fmt.Errorf("add opt-out %s: %w", d, err)
		}
		if ok {
			logger.Info("added to opt-out list", "domain", domain.NormalizeDomain(d))
			added = append(added, domain.NormalizeDomain(d))
		}
	}
	return added, nil
}

// OptOuts lists the opt-out set in sorted order.
func (a *Application) OptOuts(ctx context.Context) ([]string, error) {
	if err := a.cfg.Validate(domain.ModeReview); err != nil {
		return nil, err
	}

	ledger, err := storage.OpenLedger(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	set, err := ledger.OptOuts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (a *Application) transportClient(logger *slog.Logger) *transport.Client {
	tc := a.cfg.Transport
	return transport.New(&http.Client{Timeout: tc.Timeout}, transport.Policy{
		MaxAttempts: tc.MaxAttempts,
		Backoff:     transport.ExponentialBackoff(tc.BaseDelay),
		Retryable:   transport.RetryableStatus,
	}, logger)
}

func (a *Application) courtesyLimiter() *rate.Limiter {
	if a.cfg.Outreach.CourtesyDelay <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(a.cfg.Outreach.CourtesyDelay), 1)
}

func (a *Application) resolveFeed(client *transport.Client, logger *slog.Logger) (ports.OpportunityFeed, error) {
	registry := feed.NewRegistry()
	registry.Register(feed.NewDirectoryFeed(a.cfg.Storage.Root, a.cfg.Feed.FileName, logger.With("component", "feed.directory")))
	registry.Register(feed.NewHTTPFeed(a.cfg.Feed.Sources, client, a.courtesyLimiter(), logger.With("component", "feed.http")))
	return registry.Resolve(a.cfg.Feed.Provider)
}

func (a *Application) buildSender(day string, client *transport.Client, logger *slog.Logger) (ports.Sender, error) {
	switch a.cfg.Sender.Provider {
	case config.SenderLog:
		return sender.NewLogSender(logger.With("component", "sender.log")), nil
	case config.SenderOutbox:
		dir := filepath.Join(a.cfg.Storage.Root, day, sender.OutboxDir)
		return sender.NewOutboxSender(dir, a.cfg.Outreach.Identity(), a.cfg.Sender.FromAddress, a.clock, logger.With("component", "sender.outbox")), nil
	case config.SenderWebhook:
		return sender.NewWebhookSender(a.cfg.Sender, a.cfg.Outreach.Identity(), client), nil
	default:
		return nil, &domain.ConfigError{Field: "sender.provider", Reason: fmt.Sprintf("unknown provider %q", a.cfg.Sender.Provider)}
	}
}
