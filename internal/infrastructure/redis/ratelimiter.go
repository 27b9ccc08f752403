package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// INCR the bucket, set its TTL on first hit, return {count, pttl}.
var fixedWindowScript = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {c, redis.call("PTTL", KEYS[1])}
`)

// FixedWindowLimiter counts hits per key in Redis over a fixed window.
// A nil client disables limiting.
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
	Count      int
	RetryAfter time.Duration // 0 if allowed
	ResetAt    time.Time
}

// Allow records one hit for scope+identity. limit <= 0 means unlimited.
func (l *FixedWindowLimiter) Allow(ctx context.Context, scope, identity string, limit int, window time.Duration) (Decision, error) {
	open := Decision{Allowed: true, Limit: limit, Remaining: max(limit, 0)}
	if limit <= 0 || l.rdb == nil {
		return open, nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}

	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{key("rl", scope, identity)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return open, fmt.Errorf("ratelimit eval: %w", err)
	}
	if len(res) != 2 {
		return open, fmt.Errorf("ratelimit eval: unexpected result %v", res)
	}

	count := int(res[0])
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl <= 0 {
		ttl = window
	}

	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		Count:     count,
		ResetAt:   l.now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
