// Package metrics exports per-run counters as a Prometheus textfile that a
// node_exporter textfile collector can scrape.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"BacklinkOutreach/internal/ports"
)

// FileName is the per-day textfile.
const FileName = "outreach.prom"

// Textfile writes one snapshot per day, replacing the previous one.
type Textfile struct {
	root string

	registry *prometheus.Registry
	messages *prometheus.GaugeVec
	quota    *prometheus.GaugeVec
	feedSize prometheus.Gauge
	eligible prometheus.Gauge
	lastRun  *prometheus.GaugeVec
}

var _ ports.MetricsSink = (*Textfile)(nil)

// NewTextfile writes under <root>/<day>/outreach.prom.
func NewTextfile(root string) *Textfile {
	t := &Textfile{
		root:     root,
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "outreach",
			Name:      "messages",
			Help:      "Messages handled by the last run, by stage.",
		}, []string{"stage"}),
		quota: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "outreach",
			Name:      "quota",
			Help:      "Daily send quota at the end of the last run.",
		}, []string{"kind"}),
		feedSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outreach",
			Name:      "feed_opportunities",
			Help:      "Opportunities in the feed read by the last run.",
		}),
		eligible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outreach",
			Name:      "eligible_opportunities",
			Help:      "Opportunities left after opt-out and sent filtering.",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "outreach",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished, by mode.",
		}, []string{"mode"}),
	}
	t.registry.MustRegister(t.messages, t.quota, t.feedSize, t.eligible, t.lastRun)
	return t
}

// Flush sets every gauge from snapshot and rewrites the day's textfile.
func (t *Textfile) Flush(day string, s ports.RunSnapshot) error {
	t.messages.WithLabelValues("generated").Set(float64(s.Generated))
	t.messages.WithLabelValues("delivered").Set(float64(s.Delivered))
	t.messages.WithLabelValues("failed").Set(float64(s.Failed))
	t.messages.WithLabelValues("recorded").Set(float64(s.Recorded))

	t.quota.WithLabelValues("limit").Set(float64(s.DailyLimit))
	t.quota.WithLabelValues("sent_today").Set(float64(s.SentToday))
	t.quota.WithLabelValues("remaining").Set(float64(s.QuotaRemaining))

	t.feedSize.Set(float64(s.FeedSize))
	t.eligible.Set(float64(s.Eligible))
	t.lastRun.WithLabelValues(string(s.Mode)).Set(float64(s.FinishedAt.Unix()))

	dir := filepath.Join(t.root, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(filepath.Join(dir, FileName), t.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
