package middlewarectx

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/config"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/metrics"
	"github.com/magabrotheeeer/credit-gate/internal/ratelimit"
)

// RateLimit ограничивает число запросов класса маршрутов с одного IP.
// Ключ окна: "{class}:{ip}". Ошибка лимитера запрос не роняет.
func RateLimit(limiter ratelimit.Limiter, class string, rl config.RateLimit, m *metrics.Metrics, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RateLimit"
			ip := ClientIP(r)

			info, err := limiter.Allow(r.Context(), class+":"+ip, rl.Limit, rl.Window)
			if err != nil {
				log.Error("rate limit check failed",
					slog.String("op", op),
					slog.String("class", class),
					sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				retryAfter := int(math.Ceil(info.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				m.RateLimited.WithLabelValues(class).Inc()
				log.Warn("rate limit exceeded",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("class", class),
					slog.String("ip", ip))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Denied(response.ReasonRateLimited, 0, retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
