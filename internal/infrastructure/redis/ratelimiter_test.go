package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := &Client{rdb: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = c.Close() })
	return NewFixedWindowLimiter(c), mr
}

func TestFixedWindowLimiter_RedisNil_Allows(t *testing.T) {
	t.Parallel()
	l := NewFixedWindowLimiter(nil)

	d, err := l.Allow(context.Background(), "login", "1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 10, d.Remaining)
}

func TestFixedWindowLimiter_NonPositiveLimit_Allows(t *testing.T) {
	t.Parallel()
	l := NewFixedWindowLimiter(nil)

	for _, limit := range []int{0, -5} {
		d, err := l.AllowFixedWindow(context.Background(), "k", limit, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "limit=%d", limit)
	}
}

func TestFixedWindowLimiter_BlocksAfterLimit(t *testing.T) {
	t.Parallel()
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "register", "ip1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "register", "ip1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	other, err := l.Allow(ctx, "register", "ip2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "identities are counted separately")

	assert.True(t, mr.Exists(keyPrefix+"register:ip1"))
	ttl := mr.TTL(keyPrefix + "register:ip1")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestFixedWindowLimiter_WindowExpiry(t *testing.T) {
	t.Parallel()
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "login", "ip", 1, time.Second)
	d, _ := l.Allow(ctx, "login", "ip", 1, time.Second)
	require.False(t, d.Allowed)

	mr.FastForward(2 * time.Second)

	d, err := l.Allow(ctx, "login", "ip", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_RedisDown_ReturnsError(t *testing.T) {
	t.Parallel()
	l, mr := newTestLimiter(t)
	mr.Close()

	_, err := l.Allow(context.Background(), "login", "ip", 1, time.Minute)
	assert.Error(t, err)
}

func TestFixedWindowLimiter_WindowsAndReset(t *testing.T) {
	t.Parallel()
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Allow(ctx, "users.login", "ip:1.2.3.4", 10, time.Minute)
		require.NoError(t, err)
	}
	_, err := l.Allow(ctx, "users.login", "u:42", 10, time.Minute)
	require.NoError(t, err)
	_, err = l.Allow(ctx, "users.contact", "ip:1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	mr.Set("unrelated", "1")

	all, err := l.Windows(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "users.contact", all[0].Scope)

	login, err := l.Windows(ctx, "users.login")
	require.NoError(t, err)
	require.Len(t, login, 2)
	assert.Equal(t, "ip:1.2.3.4", login[0].Identity)
	assert.Equal(t, int64(3), login[0].Count)
	assert.Greater(t, login[0].TTL, time.Duration(0))

	n, err := l.Reset(ctx, "users.login", "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = l.Reset(ctx, "users.contact", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := l.Windows(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "u:42", left[0].Identity)
	assert.True(t, mr.Exists("unrelated"))
}

func TestFixedWindowLimiter_Windows_RedisNil(t *testing.T) {
	t.Parallel()
	l := NewFixedWindowLimiter(nil)

	ws, err := l.Windows(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, ws)

	n, err := l.Reset(context.Background(), "users.login", "")
	require.NoError(t, err)
	assert.Zero(t, n)
}
