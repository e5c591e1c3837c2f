package creditgate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	_ "github.com/magabrotheeeer/credit-gate/docs"
	"github.com/magabrotheeeer/credit-gate/internal/config"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/admin/forceconfirm"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/admin/paymentsadmin"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/credits/consume"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/credits/usage"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/features"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/health"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentconfirm"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentstatus"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/metrics"
	"github.com/magabrotheeeer/credit-gate/internal/ratelimit"
	"github.com/magabrotheeeer/credit-gate/internal/services/auth"
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

// Классы маршрутов для лимитера.
const (
	classAuth     = "auth"
	classCredits  = "credits"
	classPayments = "payments"
	classWebhook  = "webhook"
	classDefault  = "default"
)

// Deps зависимости маршрутов.
type Deps struct {
	Log      *slog.Logger
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Limiter  ratelimit.Limiter
	Tokens   middlewarectx.TokenParser
	Auth     *auth.Service
	Ledger   *credit.Ledger
	Payments *payment.Service
	Ready    health.ReadyFunc
}

// RegisterRoutes регистрирует все маршруты приложения. Порядок на платных
// маршрутах: лимит запросов, затем JWT, затем списание кредита.
func RegisterRoutes(r chi.Router, d Deps) {
	cfg := d.Config
	log := d.Log
	limit := func(class string, rl config.RateLimit) func(http.Handler) http.Handler {
		return middlewarectx.RateLimit(d.Limiter, class, rl, d.Metrics, log)
	}
	timeout := middlewarectx.OperationTimeout(cfg.Credits.OperationTimeout)

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(limit(classAuth, cfg.RateLimits.Auth), timeout)
			r.Post("/auth/register", register.New(log, d.Auth).ServeHTTP)
			r.Post("/auth/login", login.New(log, d.Auth).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации)
		r.Group(func(r chi.Router) {
			wl := cfg.RateLimits.Webhook
			perSecond := rate.Limit(float64(wl.Limit) / wl.Window.Seconds())
			r.Use(
				limit(classWebhook, wl),
				middlewarectx.Throttle(rate.NewLimiter(perSecond, cfg.RateLimits.WebhookBurst), log),
				timeout,
			)
			r.Post("/payments/webhook", paymentwebhook.New(log, d.Payments).ServeHTTP)
		})

		// Кредиты и платные функции
		r.Group(func(r chi.Router) {
			r.Use(limit(classCredits, cfg.RateLimits.Credits))
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, log), timeout)
			r.Post("/credits/consume", consume.New(log, d.Ledger).ServeHTTP)
			r.Get("/usage/status", usage.New(log, d.Ledger, cfg.FreeCredits).ServeHTTP)
			r.With(middlewarectx.UsageGuard(d.Ledger, features.Name, cfg.Credits.OperationTimeout, log)).
				Handle("/features/{feature}", features.New(log))
		})

		// Платежи пользователя
		r.Group(func(r chi.Router) {
			r.Use(limit(classPayments, cfg.RateLimits.Payments))
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, log), timeout)
			r.Post("/payments", paymentcreate.New(log, d.Payments).ServeHTTP)
			r.Get("/payments", paymentlist.New(log, d.Payments).ServeHTTP)
			r.Get("/payments/{id}", paymentstatus.New(log, d.Payments).ServeHTTP)
			r.Post("/payments/{id}/confirm", paymentconfirm.New(log, d.Payments).ServeHTTP)
		})

		// Администрирование
		r.Group(func(r chi.Router) {
			r.Use(limit(classDefault, cfg.RateLimits.Default))
			r.Use(middlewarectx.AdminOnly(cfg.AdminSecret, log), timeout)
			r.Get("/admin/payments", paymentsadmin.New(log, d.Payments).ServeHTTP)
			r.Post("/admin/payments/{id}/force-confirm", forceconfirm.New(log, d.Payments).ServeHTTP)
		})
	})

	r.Get("/healthz", health.New(log, d.Ready).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
