package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
)

// FallbackLimiter обращается к основному лимитеру и при его ошибке
// отвечает запасным, не отклоняя запрос из-за сбоя хранилища.
type FallbackLimiter struct {
	primary    Limiter
	fallback   Limiter
	log        *slog.Logger
	onFallback func()
}

// NewFallbackLimiter создаёт композицию. onFallback вызывается при каждом
// переключении на запасной лимитер и может быть nil.
func NewFallbackLimiter(primary, fallback Limiter, log *slog.Logger, onFallback func()) *FallbackLimiter {
	return &FallbackLimiter{
		primary:    primary,
		fallback:   fallback,
		log:        log,
		onFallback: onFallback,
	}
}

// Allow реализует Limiter.
func (f *FallbackLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Info, error) {
	info, err := f.primary.Allow(ctx, key, limit, window)
	if err == nil {
		return info, nil
	}
	f.log.Warn("shared rate limit store unavailable, using in-process limiter",
		slog.String("key", key), sl.Err(err))
	if f.onFallback != nil {
		f.onFallback()
	}
	return f.fallback.Allow(ctx, key, limit, window)
}
