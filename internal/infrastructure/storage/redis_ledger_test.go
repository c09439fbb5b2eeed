package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLedgerKeyLayout(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	l := NewRedisLedger(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()

	_, err := l.AddOptOut(ctx, "Opt.com")
	require.NoError(t, err)
	require.NoError(t, l.RecordSent(ctx, "A.com", "https://a.com/x", "2025-03-01", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)))

	assert.ElementsMatch(t, []string{"test:optouts", "test:sent:domains", "test:sent:day:2025-03-01"}, mr.Keys())

	members, err := mr.Members("test:sent:domains")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com"}, members)
}
