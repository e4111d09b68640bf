package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeduper(t *testing.T, ttl time.Duration) (*RedisDeduper, *miniredis.Miniredis, *test.Hook) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := NewRedisClient(RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger, hook := test.NewNullLogger()
	return NewRedisDeduper(rdb, ttl, logrus.NewEntry(logger)), mr, hook
}

func TestAcquireOnce(t *testing.T) {
	d, mr, _ := newTestDeduper(t, time.Hour)
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "reminder:1:2024-01-01:10:00"))
	assert.False(t, d.AcquireOnce(ctx, "reminder:1:2024-01-01:10:00"))
	assert.True(t, d.AcquireOnce(ctx, "reminder:1:2024-01-02:10:00"), "next day is a new slot")
	assert.True(t, d.AcquireOnce(ctx, "reminder:2:2024-01-01:10:00"), "other habit is a new slot")

	assert.True(t, mr.Exists("reminder:1:2024-01-01:10:00"))
	assert.Equal(t, time.Hour, mr.TTL("reminder:1:2024-01-01:10:00"))
}

func TestAcquireOnce_KeyExpires(t *testing.T) {
	d, mr, _ := newTestDeduper(t, time.Minute)
	ctx := context.Background()

	require.True(t, d.AcquireOnce(ctx, "k"))
	mr.FastForward(2 * time.Minute)
	assert.True(t, d.AcquireOnce(ctx, "k"))
}

func TestAcquireOnce_FailsOpen(t *testing.T) {
	d, mr, hook := newTestDeduper(t, time.Hour)
	mr.Close()

	assert.True(t, d.AcquireOnce(context.Background(), "k"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
