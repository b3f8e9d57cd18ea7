package antispam

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter implements the fixed-window check backed by Redis, so the
// suppression window survives restarts and spans replicas.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow atomically increments the window counter and allows only the first
// hit per key per window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, now time.Time) (Result, error) {
	if key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	reset := BucketReset(now)
	redisKey := l.buildKey(key, BucketFor(now))
	ttlSeconds := int64(Window/time.Second) + 60

	res, errEval := redisIncrScript.Run(ctx, l.client, []string{redisKey}, ttlSeconds).Result()
	if errEval != nil {
		return Result{}, errEval
	}
	count, ok := res.(int64)
	if !ok {
		switch v := res.(type) {
		case int:
			count = int64(v)
		case uint64:
			count = int64(v)
		default:
			return Result{}, errors.New("antispam redis: unexpected response type")
		}
	}
	if count > 1 {
		return Result{Allowed: false, Reset: reset}, nil
	}
	return Result{Allowed: true, Reset: reset}, nil
}

func (l *RedisLimiter) buildKey(key string, bucket int64) string {
	bucketStr := strconv.FormatInt(bucket, 10)
	prefix := strings.TrimSpace(l.prefix)
	if prefix == "" {
		return key + ":" + bucketStr
	}
	return prefix + ":" + key + ":" + bucketStr
}
