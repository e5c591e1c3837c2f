// Package ratelimit реализует счётчик запросов с фиксированным окном.
// Окна выровнены по now.Truncate(window), поэтому оба бэкенда (redis и
// память процесса) дают одинаковые границы окон и одинаковый предел.
package ratelimit

import (
	"context"
	"time"
)

// Limiter проверяет и увеличивает счётчик для key в текущем окне.
// Реализации безопасны для конкурентного использования.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Info, error)
}

// Info состояние окна после инкремента.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// WindowStart начало окна, в которое попадает now.
func WindowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

func newInfo(count int64, limit int, start, now time.Time, window time.Duration) Info {
	resetAt := start.Add(window)
	info := Info{
		Allowed: count <= int64(limit),
		Limit:   limit,
		ResetAt: resetAt,
	}
	if remaining := int64(limit) - count; remaining > 0 {
		info.Remaining = int(remaining)
	}
	if !info.Allowed {
		info.RetryAfter = resetAt.Sub(now)
	}
	return info
}
