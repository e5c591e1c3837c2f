package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// RedisLimiter хранит счётчики в redis, общие для всех экземпляров.
type RedisLimiter struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisLimiter создаёт лимитер поверх клиента redis.
func NewRedisLimiter(client redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

// Allow делает INCR ключа окна; на первом инкременте ставит PEXPIRE на длину окна.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, size time.Duration) (Info, error) {
	const op = "ratelimit.RedisLimiter.Allow"
	now := l.now()
	start := WindowStart(now, size)
	redisKey := keyPrefix + key + ":" + strconv.FormatInt(start.UnixMilli(), 10)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", op, err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, size).Err(); err != nil {
			return Info{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return newInfo(count, limit, start, now, size), nil
}
