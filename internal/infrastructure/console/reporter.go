// Package console prints run outcomes for the operator.
package console

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/fatih/color"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
)

// Reporter writes human-readable summaries; logs go elsewhere.
type Reporter struct {
	out       io.Writer
	useColors bool
	binary    string
	logger    *slog.Logger
}

var _ ports.Reporter = (*Reporter)(nil)

// NewReporter writes to out. binary is the command name used in hints.
func NewReporter(out io.Writer, useColors bool, binary string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{out: out, useColors: useColors, binary: binary, logger: logger}
}

// DryRun lists the generated queue and how to proceed.
func (r *Reporter) DryRun(queue domain.Queue, queuePath string) {
	r.heading(color.FgCyan, "DRY RUN — %d emails generated (not sent)", len(queue.Emails))

	rows := make([][]string, 0, len(queue.Emails))
	for i, email := range queue.Emails {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			email.Metadata.Domain,
			strconv.Itoa(email.Metadata.DomainRank),
			email.Subject,
			email.Metadata.URL,
			email.Metadata.Competitor,
		})
	}
	r.table([]string{"#", "To", "DR", "Subject", "Re", "Competitor"}, rows)

	fmt.Fprintf(r.out, "\nQueue saved to %s\n", queuePath)
	fmt.Fprintf(r.out, "Review with: %s --review\n", r.binary)
	fmt.Fprintf(r.out, "Send with:   %s --send\n", r.binary)
	r.warn("IMPORTANT: Review the queue before sending. Edit %s to remove any targets.", "outreach-queue.json")
}

// Review lists a previously generated queue.
func (r *Reporter) Review(queue domain.Queue) {
	r.heading(color.FgCyan, "PENDING OUTREACH QUEUE (%d emails, generated %s, mode %s)",
		len(queue.Emails), queue.GeneratedAt.UTC().Format("2006-01-02 15:04:05Z"), queue.Mode)

	rows := make([][]string, 0, len(queue.Emails))
	for i, email := range queue.Emails {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			email.Metadata.Domain,
			strconv.Itoa(email.Metadata.DomainRank),
			email.Subject,
			email.Metadata.URL,
		})
	}
	r.table([]string{"#", "Domain", "DR", "Subject", "Target"}, rows)
}

// NoPendingQueue tells the operator to generate a queue first.
func (r *Reporter) NoPendingQueue(day string) {
	fmt.Fprintf(r.out, "No pending queue for %s. Run %s without --review first to generate one.\n", day, r.binary)
}

// SendSummary reports the delivery outcome of a send run.
func (r *Reporter) SendSummary(queue domain.Queue, delivered, failed, recorded int) {
	r.heading(color.FgGreen, "SEND MODE — %d emails in queue", len(queue.Emails))
	r.table([]string{"Delivered", "Failed", "Recorded", "Sent today", "Daily limit"}, [][]string{{
		strconv.Itoa(delivered),
		strconv.Itoa(failed),
		strconv.Itoa(recorded),
		strconv.Itoa(queue.SentToday + recorded),
		strconv.Itoa(queue.DailyLimit),
	}})
	if failed > 0 {
		r.warn("%d deliveries failed; see the run log for details.", failed)
	}
}

// QuotaExhausted explains why a send run produced nothing.
func (r *Reporter) QuotaExhausted(sentToday, limit int) {
	r.warn("Daily limit reached (%d/%d). No emails will be sent.", sentToday, limit)
}

func (r *Reporter) heading(attr color.Attribute, format string, args ...any) {
	if r.useColors {
		color.New(attr, color.Bold).Fprintf(r.out, "\n"+format+"\n\n", args...)
		return
	}
	fmt.Fprintf(r.out, "\n"+format+"\n\n", args...)
}

func (r *Reporter) warn(format string, args ...any) {
	if r.useColors {
		color.New(color.FgYellow).Fprintf(r.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Reporter) table(header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	if err := renderTable(r.out, header, rows); err != nil {
		r.logger.Warn("render table", "error", err)
	}
}
