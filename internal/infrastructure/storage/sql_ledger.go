package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
)

// Dialect selects placeholder style and schema details.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLLedger persists opt-outs and sent records in a relational database.
type SQLLedger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Ledger = (*SQLLedger)(nil)

// OpenSQLite opens (and creates) an embedded database file.
func OpenSQLite(ctx context.Context, path string) (*SQLLedger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// one connection: sqlite has a single writer and :memory: is per-connection
	db.SetMaxOpenConns(1)

	return newSQLLedger(ctx, db, DialectSQLite)
}

// OpenPostgres connects to a Postgres ledger.
func OpenPostgres(ctx context.Context, dsn string) (*SQLLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres ledger: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres ledger: %w", err)
	}
	return newSQLLedger(ctx, db, DialectPostgres)
}

func newSQLLedger(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLLedger, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if dialect == DialectPostgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}

	l := &SQLLedger{db: db, builder: builder}
	if err := l.migrate(ctx, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLLedger) migrate(ctx context.Context, dialect Dialect) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == DialectPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS optouts (
			domain TEXT PRIMARY KEY,
			added_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sent_log (
			` + idColumn + `,
			domain TEXT NOT NULL,
			url TEXT NOT NULL,
			day TEXT NOT NULL,
			sent_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_log_day ON sent_log(day)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_log_domain ON sent_log(domain)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return nil
}

// IsOptedOut reports whether the normalized domain is on the opt-out list.
func (l *SQLLedger) IsOptedOut(ctx context.Context, d string) (bool, error) {
	query, args, err := l.builder.
		Select("COUNT(*)").
		From("optouts").
		Where(sq.Eq{"domain": domain.NormalizeDomain(d)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build opt-out query: %w", err)
	}

	var n int
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("query opt-out: %w", err)
	}
	return n > 0, nil
}

// AddOptOut inserts the domain; a duplicate is ignored and reported as added=false.
func (l *SQLLedger) AddOptOut(ctx context.Context, d string) (bool, error) {
	query, args, err := l.builder.
		Insert("optouts").
		Columns("domain", "added_at").
		Values(domain.NormalizeDomain(d), time.Now().UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT (domain) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build opt-out insert: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert opt-out: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("opt-out rows affected: %w", err)
	}
	return n > 0, nil
}

// OptOuts returns every opted-out domain.
func (l *SQLLedger) OptOuts(ctx context.Context) (map[string]struct{}, error) {
	return l.domainSet(ctx, l.builder.Select("domain").From("optouts"))
}

// AllSentDomains returns every domain that has a sent record on any day.
func (l *SQLLedger) AllSentDomains(ctx context.Context) (map[string]struct{}, error) {
	return l.domainSet(ctx, l.builder.Select("domain").Distinct().From("sent_log"))
}

// SentOn returns the records dated day, in insertion order.
func (l *SQLLedger) SentOn(ctx context.Context, day string) ([]domain.SentRecord, error) {
	query, args, err := l.builder.
		Select("domain", "url", "day", "sent_at").
		From("sent_log").
		Where(sq.Eq{"day": day}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sent query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sent: %w", err)
	}
	defer rows.Close()

	var out []domain.SentRecord
	for rows.Next() {
		var (
			rec    domain.SentRecord
			sentAt string
		)
		if err := rows.Scan(&rec.Domain, &rec.URL, &rec.Date, &sentAt); err != nil {
			return nil, fmt.Errorf("scan sent record: %w", err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, sentAt)
		if err != nil {
			return nil, fmt.Errorf("parse sent_at %q: %w", sentAt, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// RecordSent appends one send event.
func (l *SQLLedger) RecordSent(ctx context.Context, d, url, day string, at time.Time) error {
	query, args, err := l.builder.
		Insert("sent_log").
		Columns("domain", "url", "day", "sent_at").
		Values(domain.NormalizeDomain(d), url, day, at.UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sent insert: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert sent record: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *SQLLedger) Close() error {
	return l.db.Close()
}

func (l *SQLLedger) domainSet(ctx context.Context, b sq.SelectBuilder) (map[string]struct{}, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build domain query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	set := map[string]struct{}{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		set[domain.NormalizeDomain(d)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return set, nil
}
