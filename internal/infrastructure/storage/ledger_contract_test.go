package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BacklinkOutreach/internal/ports"
)

type ledgerFactory func(t *testing.T) ports.Ledger

func ledgerBackends() map[string]ledgerFactory {
	return map[string]ledgerFactory{
		"json": func(t *testing.T) ports.Ledger {
			return NewJSONLedger(t.TempDir())
		},
		"sqlite": func(t *testing.T) ports.Ledger {
			l, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = l.Close() })
			return l
		},
		"redis": func(t *testing.T) ports.Ledger {
			mr := miniredis.RunT(t)
			l := NewRedisLedger(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
			t.Cleanup(func() { _ = l.Close() })
			return l
		},
	}
}

func TestLedgerContract(t *testing.T) {
	t.Parallel()

	for name, factory := range ledgerBackends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			t.Run("empty ledger", func(t *testing.T) {
				l := factory(t)
				ctx := context.Background()

				opted, err := l.IsOptedOut(ctx, "a.com")
				require.NoError(t, err)
				assert.False(t, opted)

				sent, err := l.AllSentDomains(ctx)
				require.NoError(t, err)
				assert.Empty(t, sent)

				today, err := l.SentOn(ctx, "2025-03-01")
				require.NoError(t, err)
				assert.Empty(t, today)
			})

			t.Run("opt-out is idempotent across casing", func(t *testing.T) {
				l := factory(t)
				ctx := context.Background()

				added, err := l.AddOptOut(ctx, "Example.COM")
				require.NoError(t, err)
				assert.True(t, added)

				added, err = l.AddOptOut(ctx, " example.com ")
				require.NoError(t, err)
				assert.False(t, added)

				set, err := l.OptOuts(ctx)
				require.NoError(t, err)
				assert.Equal(t, map[string]struct{}{"example.com": {}}, set)

				opted, err := l.IsOptedOut(ctx, "EXAMPLE.com")
				require.NoError(t, err)
				assert.True(t, opted)
			})

			t.Run("sent records are global and per day", func(t *testing.T) {
				l := factory(t)
				ctx := context.Background()
				at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

				require.NoError(t, l.RecordSent(ctx, "Old.com", "https://old.com/a", "2025-02-28", at.Add(-24*time.Hour)))
				require.NoError(t, l.RecordSent(ctx, "new.com", "https://new.com/b", "2025-03-01", at))
				require.NoError(t, l.RecordSent(ctx, "other.com", "https://other.com/c", "2025-03-01", at.Add(time.Minute)))

				all, err := l.AllSentDomains(ctx)
				require.NoError(t, err)
				assert.Equal(t, map[string]struct{}{"old.com": {}, "new.com": {}, "other.com": {}}, all)

				today, err := l.SentOn(ctx, "2025-03-01")
				require.NoError(t, err)
				require.Len(t, today, 2)
				assert.Equal(t, "new.com", today[0].Domain)
				assert.Equal(t, "https://new.com/b", today[0].URL)
				assert.Equal(t, "2025-03-01", today[0].Date)
				assert.True(t, at.Equal(today[0].Timestamp))
				assert.Equal(t, "other.com", today[1].Domain)
			})
		})
	}
}
