package middlewarectx

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/credit-gate/internal/http/response"
)

// Throttle общий для всех клиентов token bucket. Стоит перед вебхуком,
// поверх лимита по IP, чтобы всплеск от провайдера не забил хранилище.
func Throttle(limiter *rate.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests", slog.String("path", r.URL.Path))
				w.Header().Set("Retry-After", strconv.Itoa(1))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Denied(response.ReasonRateLimited, 0, 1))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
