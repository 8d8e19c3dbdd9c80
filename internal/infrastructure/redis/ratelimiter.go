package redis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "portal:rl:"

// FixedWindowLimiter implements a fixed-window rate limiter using Redis:
// INCR key; if count == 1 then PEXPIRE key window.
type FixedWindowLimiter struct {
	rdb *goredis.Client
	now func() time.Time
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	l := &FixedWindowLimiter{now: time.Now}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // 0 if allowed
	ResetAt    time.Time
	Count      int
}

// returns {count, ttl_ms}
var fixedWindow = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`)

// Allow counts one hit for scope+identity (e.g. "login" + client IP).
func (l *FixedWindowLimiter) Allow(ctx context.Context, scope, identity string, limit int, window time.Duration) (Decision, error) {
	return l.AllowFixedWindow(ctx, keyPrefix+scope+":"+identity, limit, window)
}

// AllowFixedWindow returns whether a request is allowed for key within window.
func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	if l.rdb == nil {
		// fail open when redis is disabled
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	res, err := fixedWindow.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit redis eval: %w", err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return Decision{}, fmt.Errorf("ratelimit redis eval: unexpected result %T", res)
	}
	count, ok1 := arr[0].(int64)
	ttlms, ok2 := arr[1].(int64)
	if !ok1 || !ok2 {
		return Decision{}, fmt.Errorf("ratelimit redis eval: unexpected element types")
	}
	ttl := time.Duration(ttlms) * time.Millisecond

	d := Decision{
		Allowed:   int(count) <= limit,
		Limit:     limit,
		Remaining: max(0, limit-int(count)),
		Count:     int(count),
		ResetAt:   l.now().Add(ttl),
	}
	if !d.Allowed {
		if ttl > 0 {
			d.RetryAfter = ttl
		} else {
			d.RetryAfter = window
		}
	}
	return d, nil
}

// Window is one live fixed-window counter.
type Window struct {
	Scope    string
	Identity string
	Count    int64
	TTL      time.Duration
}

// Windows lists the live counters, optionally restricted to one scope.
func (l *FixedWindowLimiter) Windows(ctx context.Context, scope string) ([]Window, error) {
	if l.rdb == nil {
		return nil, nil
	}

	pattern := keyPrefix + "*"
	if scope != "" {
		pattern = keyPrefix + scope + ":*"
	}

	var out []Window
	var cursor uint64
	for {
		keys, next, err := l.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("ratelimit redis scan: %w", err)
		}
		for _, k := range keys {
			count, err := l.rdb.Get(ctx, k).Int64()
			if err != nil {
				// expired between SCAN and GET
				continue
			}
			ttl, _ := l.rdb.PTTL(ctx, k).Result()
			s, id, _ := strings.Cut(strings.TrimPrefix(k, keyPrefix), ":")
			out = append(out, Window{Scope: s, Identity: id, Count: count, TTL: ttl})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Identity < out[j].Identity
	})
	return out, nil
}

// Reset drops the counter for scope+identity, or every counter of scope when
// identity is empty. It returns how many counters were removed.
func (l *FixedWindowLimiter) Reset(ctx context.Context, scope, identity string) (int64, error) {
	if l.rdb == nil || scope == "" {
		return 0, nil
	}
	if identity != "" {
		n, err := l.rdb.Del(ctx, keyPrefix+scope+":"+identity).Result()
		if err != nil {
			return 0, fmt.Errorf("ratelimit redis del: %w", err)
		}
		return n, nil
	}

	ws, err := l.Windows(ctx, scope)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, w := range ws {
		n, err := l.rdb.Del(ctx, keyPrefix+w.Scope+":"+w.Identity).Result()
		if err != nil {
			return total, fmt.Errorf("ratelimit redis del: %w", err)
		}
		total += n
	}
	return total, nil
}
