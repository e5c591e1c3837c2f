// Package creditgate собирает приложение: хранилище, сервисы кредитов и
// платежей, лимитер запросов, планировщик автоподтверждения и HTTP-сервер.
package creditgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/credit-gate/internal/cache"
	"github.com/magabrotheeeer/credit-gate/internal/config"
	"github.com/magabrotheeeer/credit-gate/internal/events"
	"github.com/magabrotheeeer/credit-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/credit-gate/internal/lib/password"
	"github.com/magabrotheeeer/credit-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/metrics"
	"github.com/magabrotheeeer/credit-gate/internal/ratelimit"
	"github.com/magabrotheeeer/credit-gate/internal/services/antifraud"
	"github.com/magabrotheeeer/credit-gate/internal/services/auth"
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
	"github.com/magabrotheeeer/credit-gate/internal/services/entitlement"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
	"github.com/magabrotheeeer/credit-gate/internal/services/scheduler"
)

const (
	shutdownTimeout     = 15 * time.Second
	limiterCleanupEvery = time.Minute
	schedulerBatchSize  = 100
	defaultPasswordCost = bcrypt.DefaultCost
)

// App приложение credit-gate.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
	runSched  bool
	memLimit  *ratelimit.MemoryLimiter
	closers   []func() error
}

// Option меняет сборку приложения.
type Option func(*options)

type options struct {
	passwordCost int
	now          func() time.Time
}

// WithPasswordCost задаёт стоимость bcrypt.
func WithPasswordCost(cost int) Option {
	return func(o *options) { o.passwordCost = cost }
}

// WithClock подменяет источник времени во всех сервисах.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New собирает приложение по конфигу. Redis и RabbitMQ необязательны:
// без них лимитер работает в памяти, а события пишутся в лог.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{passwordCost: defaultPasswordCost, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{logger: logger, runSched: !cfg.Scheduler.Disabled}

	st, ready, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	publisher := app.initEvents(cfg, logger)

	app.memLimit = ratelimit.NewMemoryLimiter(limiterCleanupEvery)
	var limiter ratelimit.Limiter = app.memLimit
	var paymentCache payment.Cache
	if cfg.AddressRedis != "" {
		redisCache, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Error("redis unavailable, using in-process rate limiter", sl.Err(err))
		} else {
			app.closers = append(app.closers, redisCache.Close)
			paymentCache = redisCache
			limiter = ratelimit.NewFallbackLimiter(
				ratelimit.NewRedisLimiter(redisCache.Db),
				app.memLimit,
				logger,
				m.RateLimitFallbacks.Inc,
			)
		}
	}

	entitlements := entitlement.New(st, publisher, m, logger).WithClock(o.now)
	ledger := credit.New(st, publisher, m, logger).WithClock(o.now)
	payments := payment.New(st, entitlements, paymentCache, publisher, m, logger, payment.Config{
		Price:        cfg.Premium.Price,
		PremiumDays:  cfg.Premium.Days,
		ExpiryWindow: cfg.Payments.ExpiryWindow,
		PixKey:       cfg.Payments.PixKey,
		MerchantName: cfg.Payments.MerchantName,
		MerchantCity: cfg.Payments.MerchantCity,
	}).WithClock(o.now)
	guard := antifraud.New(st, antifraud.Config{
		IPCooldown:           cfg.AntiFraud.IPCooldown,
		MaxAccountsPerDevice: cfg.AntiFraud.MaxAccountsPerDevice,
		Retention:            cfg.AntiFraud.Retention,
	}, m, logger).WithClock(o.now)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := auth.New(st, guard, password.NewHasher(o.passwordCost), jwtMaker, cfg.FreeCredits, logger)

	app.scheduler = scheduler.New(st, payments, guard, m, logger, scheduler.Config{
		Interval:   cfg.Scheduler.Interval,
		Threshold:  cfg.Scheduler.Threshold,
		ClaimLease: cfg.Scheduler.ClaimLease,
		BatchSize:  schedulerBatchSize,
	}).WithClock(o.now)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Log:      logger,
		Config:   cfg,
		Registry: reg,
		Metrics:  m,
		Limiter:  limiter,
		Tokens:   jwtMaker,
		Auth:     authService,
		Ledger:   ledger,
		Payments: payments,
		Ready:    ready,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) initEvents(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.NewLogPublisher(logger)
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Error("rabbitmq unavailable, events go to log only", sl.Err(err))
		return events.NewLogPublisher(logger)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetBillingQueues())
	if err != nil {
		logger.Error("failed to set up rabbitmq channel, events go to log only", sl.Err(err))
		_ = conn.Close()
		return events.NewLogPublisher(logger)
	}
	a.closers = append(a.closers, ch.Close, conn.Close)
	return events.NewAMQPPublisher(ch, logger)
}

// Handler HTTP-обработчик приложения.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Scheduler планировщик автоподтверждения.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Run запускает HTTP-сервер и планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	schedCtx, stopSched := context.WithCancel(ctx)
	defer stopSched()

	var wg sync.WaitGroup
	if a.runSched {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.scheduler.Run(schedCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		runErr = a.server.Shutdown(timeoutCtx)
	}

	stopSched()
	wg.Wait()
	a.Close()
	return runErr
}

// Close освобождает ресурсы в обратном порядке открытия.
func (a *App) Close() {
	a.memLimit.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
