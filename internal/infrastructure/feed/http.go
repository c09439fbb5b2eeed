package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/time/rate"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/infrastructure/transport"
	"BacklinkOutreach/internal/ports"
)

// HTTPFeed merges opportunity batches served by one or more discovery endpoints.
type HTTPFeed struct {
	sources []string
	client  *transport.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.OpportunityFeed = (*HTTPFeed)(nil)

// NewHTTPFeed wires the sources to the retrying client. A nil limiter disables spacing.
func NewHTTPFeed(sources []string, client *transport.Client, limiter *rate.Limiter, logger *slog.Logger) *HTTPFeed {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &HTTPFeed{sources: sources, client: client, limiter: limiter, logger: logger}
}

// Name identifies the provider.
func (f *HTTPFeed) Name() string {
	return "http"
}

// Latest fetches every source, skipping those that fail, and returns the union
// ordered by DomainRank descending. Ties keep source order.
func (f *HTTPFeed) Latest(ctx context.Context) (domain.OpportunityBatch, error) {
	var (
		merged    domain.OpportunityBatch
		succeeded int
	)

	for _, src := range f.sources {
		if err := f.limiter.Wait(ctx); err != nil {
			return domain.OpportunityBatch{}, fmt.Errorf("wait for feed slot: %w", err)
		}

		var batch domain.OpportunityBatch
		if err := f.client.GetJSON(ctx, src, nil, &batch); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.OpportunityBatch{}, fmt.Errorf("fetch feed %s: %w", src, err)
			}
			f.logger.Warn("feed source failed", "source", src, "error", err)
			continue
		}

		succeeded++
		merged.TotalOpportunities += batch.TotalOpportunities
		merged.Opportunities = append(merged.Opportunities, batch.Opportunities...)
		f.logger.Info("feed source loaded", "source", src, "opportunities", len(batch.Opportunities))
	}

	if succeeded == 0 {
		return domain.OpportunityBatch{}, fmt.Errorf("%w: all %d feed sources failed", domain.ErrInputNotFound, len(f.sources))
	}

	sort.SliceStable(merged.Opportunities, func(i, j int) bool {
		return merged.Opportunities[i].DomainRank > merged.Opportunities[j].DomainRank
	})
	return merged, nil
}
