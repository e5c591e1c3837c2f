package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
)

type creditKey struct{}

// FeatureFunc определяет имя платной функции по запросу.
type FeatureFunc func(r *http.Request) string

// UsageGuard списывает кредит до вызова обработчика платной функции.
// При ошибке счётчика запрос отклоняется: без решения функция не выполняется.
func UsageGuard(ledger Deducter, feature FeatureFunc, timeout time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.UsageGuard"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			uid, ok := UserUIDFromContext(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.ReasonUnauthorized))
				return
			}
			name := feature(r)

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			res, err := ledger.Deduct(ctx, uid, name)
			cancel()
			if err != nil {
				if errors.Is(err, models.ErrUserNotFound) {
					log.Info("token for unknown user", slog.String("user_uid", uid))
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, response.Error(response.ReasonUnauthorized))
					return
				}
				log.Error("credit check failed", slog.String("feature", name), sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error(response.ReasonInternal))
				return
			}
			if !res.Allowed {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.NoCredits(res.Remaining))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), creditKey{}, res)))
		})
	}
}

// CreditFromContext решение UsageGuard для текущего запроса.
func CreditFromContext(ctx context.Context) (credit.Result, bool) {
	res, ok := ctx.Value(creditKey{}).(credit.Result)
	return res, ok
}
