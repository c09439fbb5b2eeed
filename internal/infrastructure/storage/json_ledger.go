package storage

import (
	"context"
	"path/filepath"
	"time"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
)

const (
	optOutFileName  = "outreach-optouts.json"
	sentLogFileName = "outreach-sent.json"
)

type sentLog struct {
	Entries []domain.SentRecord `json:"entries"`
}

// JSONLedger keeps the opt-out list and the global sent log as two JSON files at
// the storage root. Every call reads the files fresh; writes replace them atomically.
type JSONLedger struct {
	optOutPath string
	sentPath   string
}

var _ ports.Ledger = (*JSONLedger)(nil)

// NewJSONLedger points the ledger at root.
func NewJSONLedger(root string) *JSONLedger {
	return &JSONLedger{
		optOutPath: filepath.Join(root, optOutFileName),
		sentPath:   filepath.Join(root, sentLogFileName),
	}
}

// IsOptedOut reports whether the normalized domain is on the opt-out list.
func (l *JSONLedger) IsOptedOut(ctx context.Context, d string) (bool, error) {
	set, err := l.OptOuts(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[domain.NormalizeDomain(d)]
	return ok, nil
}

// AddOptOut appends the domain unless it is already listed.
func (l *JSONLedger) AddOptOut(_ context.Context, d string) (bool, error) {
	normalized := domain.NormalizeDomain(d)

	entries, err := l.loadOptOuts()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if domain.NormalizeDomain(e) == normalized {
			return false, nil
		}
	}

	entries = append(entries, normalized)
	if err := writeJSON(l.optOutPath, entries); err != nil {
		return false, err
	}
	return true, nil
}

// OptOuts returns the normalized opt-out set.
func (l *JSONLedger) OptOuts(_ context.Context) (map[string]struct{}, error) {
	entries, err := l.loadOptOuts()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[domain.NormalizeDomain(e)] = struct{}{}
	}
	return set, nil
}

// AllSentDomains projects every sent record onto its normalized domain.
func (l *JSONLedger) AllSentDomains(_ context.Context) (map[string]struct{}, error) {
	log, err := l.loadSent()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(log.Entries))
	for _, e := range log.Entries {
		set[domain.NormalizeDomain(e.Domain)] = struct{}{}
	}
	return set, nil
}

// SentOn returns the records dated day, in append order.
func (l *JSONLedger) SentOn(_ context.Context, day string) ([]domain.SentRecord, error) {
	log, err := l.loadSent()
	if err != nil {
		return nil, err
	}
	var out []domain.SentRecord
	for _, e := range log.Entries {
		if e.Date == day {
			out = append(out, e)
		}
	}
	return out, nil
}

// RecordSent appends one record and rewrites the log.
func (l *JSONLedger) RecordSent(_ context.Context, d, url, day string, at time.Time) error {
	log, err := l.loadSent()
	if err != nil {
		return err
	}
	log.Entries = append(log.Entries, domain.SentRecord{
		Domain:    domain.NormalizeDomain(d),
		URL:       url,
		Date:      day,
		Timestamp: at.UTC(),
	})
	return writeJSON(l.sentPath, log)
}

// Close is a no-op; files are not held open.
func (l *JSONLedger) Close() error {
	return nil
}

func (l *JSONLedger) loadOptOuts() ([]string, error) {
	var entries []string
	if _, err := readJSON(l.optOutPath, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *JSONLedger) loadSent() (sentLog, error) {
	var log sentLog
	if _, err := readJSON(l.sentPath, &log); err != nil {
		return sentLog{}, err
	}
	return log, nil
}
