package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
)

const defaultRedisPrefix = "outreach"

// RedisLedger stores opt-outs and sent domains as sets and sent records as
// per-day lists. SADD makes opt-outs idempotent without a read-modify-write.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

var _ ports.Ledger = (*RedisLedger)(nil)

// OpenRedis connects using a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*RedisLedger, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis ledger: %w", err)
	}
	return NewRedisLedger(client, defaultRedisPrefix), nil
}

// NewRedisLedger wraps an existing client; keys are namespaced by prefix.
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLedger{client: client, prefix: prefix}
}

func (l *RedisLedger) optOutKey() string      { return l.prefix + ":optouts" }
func (l *RedisLedger) sentDomainsKey() string { return l.prefix + ":sent:domains" }
func (l *RedisLedger) sentDayKey(day string) string {
	return l.prefix + ":sent:day:" + day
}

// IsOptedOut reports whether the normalized domain is on the opt-out list.
func (l *RedisLedger) IsOptedOut(ctx context.Context, d string) (bool, error) {
	ok, err := l.client.SIsMember(ctx, l.optOutKey(), domain.NormalizeDomain(d)).Result()
	if err != nil {
		return false, fmt.Errorf("check opt-out: %w", err)
	}
	return ok, nil
}

// AddOptOut adds the domain; added is false when it was already present.
func (l *RedisLedger) AddOptOut(ctx context.Context, d string) (bool, error) {
	n, err := l.client.SAdd(ctx, l.optOutKey(), domain.NormalizeDomain(d)).Result()
	if err != nil {
		return false, fmt.Errorf("add opt-out: %w", err)
	}
	return n > 0, nil
}

// OptOuts returns the opt-out set.
func (l *RedisLedger) OptOuts(ctx context.Context) (map[string]struct{}, error) {
	return l.members(ctx, l.optOutKey())
}

// AllSentDomains returns every domain ever recorded as sent.
func (l *RedisLedger) AllSentDomains(ctx context.Context) (map[string]struct{}, error) {
	return l.members(ctx, l.sentDomainsKey())
}

// SentOn returns the records dated day, in append order.
func (l *RedisLedger) SentOn(ctx context.Context, day string) ([]domain.SentRecord, error) {
	raw, err := l.client.LRange(ctx, l.sentDayKey(day), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sent records: %w", err)
	}

	out := make([]domain.SentRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.SentRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, domain.Corrupt(l.sentDayKey(day), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RecordSent appends the record to the day list and adds the domain to the
// sent set in one transaction.
func (l *RedisLedger) RecordSent(ctx context.Context, d, url, day string, at time.Time) error {
	rec := domain.SentRecord{
		Domain:    domain.NormalizeDomain(d),
		URL:       url,
		Date:      day,
		Timestamp: at.UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal sent record: %w", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, l.sentDomainsKey(), rec.Domain)
		pipe.RPush(ctx, l.sentDayKey(day), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record sent: %w", err)
	}
	return nil
}

// Close closes the client.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}

func (l *RedisLedger) members(ctx context.Context, key string) (map[string]struct{}, error) {
	items, err := l.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set, nil
}
