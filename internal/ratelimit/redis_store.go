// internal/ratelimit/redis_store.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"devpulse-search/internal/common/config"
)

// reserveScript prunes both windows, checks global then identity, and
// records the event in both sorted sets. One script call, so the
// check-and-record is atomic across concurrent clients.
var reserveScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local idLimit = tonumber(ARGV[3])
local globalLimit = tonumber(ARGV[4])
local member = ARGV[5]
local cutoff = now - window

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', cutoff)

local globalCount = redis.call('ZCARD', KEYS[2])
if globalCount >= globalLimit then
  local oldest = redis.call('ZRANGE', KEYS[2], 0, 0, 'WITHSCORES')
  local resetAt = now + window
  if oldest[2] then resetAt = tonumber(oldest[2]) + window end
  return {'global', 0, resetAt}
end

local idCount = redis.call('ZCARD', KEYS[1])
if idCount >= idLimit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local resetAt = now + window
  if oldest[2] then resetAt = tonumber(oldest[2]) + window end
  return {'identity', 0, resetAt}
end

redis.call('ZADD', KEYS[1], now, member)
redis.call('ZADD', KEYS[2], now, member)
local ttl = math.ceil(window / 1000)
redis.call('EXPIRE', KEYS[1], ttl)
redis.call('EXPIRE', KEYS[2], ttl)

return {'ok', idLimit - idCount - 1, now + window}
`)

const globalKey = "search:ratelimit:global"

// RedisStore keeps one sorted set per identity plus a global one;
// scores are event timestamps in milliseconds.
type RedisStore struct {
	client      *redis.Client
	perIdentity int
	global      int
	window      time.Duration
}

func NewRedisStore(client *redis.Client, cfg config.QuotaConfig) *RedisStore {
	return &RedisStore{
		client:      client,
		perIdentity: cfg.PerIdentityDaily,
		global:      cfg.GlobalDaily,
		window:      WindowFromConfig(cfg),
	}
}

func (s *RedisStore) Reserve(ctx context.Context, identity string, now time.Time) (Decision, error) {
	keys := []string{"search:ratelimit:id:" + identity, globalKey}
	args := []interface{}{
		now.UnixMilli(),
		s.window.Milliseconds(),
		s.perIdentity,
		s.global,
		uuid.NewString(),
	}

	raw, err := reserveScript.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script reply: %v", raw)
	}

	scope, _ := reply[0].(string)
	remaining, _ := reply[1].(int64)
	resetMs, _ := reply[2].(int64)

	if scope == "ok" {
		return Decision{Allowed: true, Remaining: int(remaining), ResetAt: time.UnixMilli(resetMs)}, nil
	}
	return Decision{Allowed: false, Scope: scope, ResetAt: time.UnixMilli(resetMs)}, nil
}
