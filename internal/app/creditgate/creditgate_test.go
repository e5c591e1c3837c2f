package creditgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/credit-gate/internal/config"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
)

const adminSecret = "admin-secret"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *config.Config {
	rl := func(limit int) config.RateLimit {
		return config.RateLimit{Limit: limit, Window: 24 * time.Hour}
	}
	return &config.Config{
		Env:           "local",
		StorageDriver: "memory",
		AdminSecret:   adminSecret,
		HTTPServer:    config.HTTPServer{AddressHTTP: "127.0.0.1:0", TimeoutHTTP: 5 * time.Second, IdleTimeout: time.Minute},
		JWTToken:      config.JWTToken{JWTSecretKey: "test-secret", TokenTTL: time.Hour},
		Credits:       config.Credits{FreeCredits: 7, OperationTimeout: 2 * time.Second},
		Premium:       config.Premium{Days: 30, Price: 1990},
		Payments: config.Payments{
			ExpiryWindow: 30 * time.Minute,
			PixKey:       "pagamentos@pokerstats.app",
			MerchantName: "POKERSTATS",
			MerchantCity: "SAO PAULO",
		},
		Scheduler: config.Scheduler{Disabled: true, Interval: 10 * time.Second, Threshold: 30 * time.Second, ClaimLease: time.Minute},
		AntiFraud: config.AntiFraud{IPCooldown: 24 * time.Hour, MaxAccountsPerDevice: 2, Retention: 720 * time.Hour},
		RateLimits: config.RateLimits{
			Auth:         rl(100),
			Credits:      rl(100),
			Payments:     rl(100),
			Webhook:      rl(100),
			Default:      rl(100),
			WebhookBurst: 100,
		},
	}
}

func newTestApp(t *testing.T, mutate func(*config.Config)) (*App, *fakeClock) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	app, err := New(context.Background(), cfg, sl.Discard(),
		WithPasswordCost(bcrypt.MinCost),
		WithClock(clock.Now),
	)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, clock
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
	ip      string
	headers map[string]string
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.ip != "" {
		req.RemoteAddr = c.ip + ":40000"
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (c *client) register(email, fingerprint string) {
	c.t.Helper()
	code, body := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":       email,
		"password":    "password123",
		"fingerprint": fingerprint,
	})
	require.Equal(c.t, http.StatusCreated, code, body)
	data := body["data"].(map[string]any)
	assert.Equal(c.t, float64(7), data["free_credits"])
	c.token = data["token"].(string)
}

func TestScenario_FreeCreditsThenPremium(t *testing.T) {
	app, clock := newTestApp(t, nil)
	c := &client{t: t, handler: app.Handler(), ip: "198.51.100.1"}
	c.register("player@example.com", "device-1")

	for want := 6; want >= 0; want-- {
		code, body := c.do(http.MethodPost, "/api/v1/credits/consume", map[string]string{"feature": "hand-analysis"})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, true, body["allowed"])
		assert.Equal(t, float64(want), body["remaining"])
	}

	code, body := c.do(http.MethodPost, "/api/v1/credits/consume", nil)
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "no_credits", body["error"])
	assert.Equal(t, float64(0), body["remaining"])

	code, body = c.do(http.MethodPost, "/api/v1/features/range-explorer", nil)
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "no_credits", body["error"])

	code, body = c.do(http.MethodGet, "/api/v1/usage/status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{
		"isPremium":        false,
		"freeCredits":      float64(0),
		"freeCreditsLimit": float64(7),
		"blocked":          true,
	}, body)

	code, body = c.do(http.MethodPost, "/api/v1/payments", nil)
	require.Equal(t, http.StatusOK, code, body)
	paymentID := body["id"].(string)
	assert.Equal(t, float64(1990), body["amount"])
	assert.Equal(t, float64(1800), body["expiresIn"])
	assert.True(t, strings.HasPrefix(body["paymentCode"].(string), "000201"))

	code, body = c.do(http.MethodGet, "/api/v1/payments/"+paymentID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending", body["status"])
	assert.NotContains(t, body, "confirmedAt")

	// до порога планировщик платёж не трогает
	report := app.Scheduler().Tick(context.Background())
	assert.Equal(t, 0, report.Completed)

	clock.Advance(31 * time.Second)
	report = app.Scheduler().Tick(context.Background())
	assert.Equal(t, 1, report.Completed)

	code, body = c.do(http.MethodGet, "/api/v1/payments/"+paymentID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["status"])
	assert.Contains(t, body, "confirmedAt")

	for range 3 {
		code, body = c.do(http.MethodPost, "/api/v1/features/range-explorer", nil)
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, true, body["unlimited"])
		assert.Equal(t, "range-explorer", body["feature"])
	}

	code, body = c.do(http.MethodGet, "/api/v1/usage/status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["isPremium"])
	assert.Equal(t, false, body["blocked"])

	// премиум истекает лениво: следующий запрос после premium_until снова считает кредиты
	clock.Advance(31 * 24 * time.Hour)
	code, body = c.do(http.MethodPost, "/api/v1/credits/consume", nil)
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "no_credits", body["error"])
}

func TestScenario_ManualConfirmAndOwnership(t *testing.T) {
	app, _ := newTestApp(t, nil)
	owner := &client{t: t, handler: app.Handler(), ip: "198.51.100.2"}
	owner.register("owner@example.com", "device-owner")
	other := &client{t: t, handler: app.Handler(), ip: "198.51.100.3"}
	other.register("other@example.com", "device-other")

	code, body := owner.do(http.MethodPost, "/api/v1/payments", nil)
	require.Equal(t, http.StatusOK, code)
	id := body["id"].(string)

	code, body = other.do(http.MethodPost, "/api/v1/payments/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["error"])

	code, _ = other.do(http.MethodGet, "/api/v1/payments/"+id, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = owner.do(http.MethodPost, "/api/v1/payments/unknown-id/confirm", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = owner.do(http.MethodPost, "/api/v1/payments/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["status"])
	assert.Contains(t, body, "premiumUntil")

	// повторное подтверждение идемпотентно
	code, body = owner.do(http.MethodPost, "/api/v1/payments/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["status"])

	code, body = owner.do(http.MethodGet, "/api/v1/payments", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)
}

func TestScenario_WebhookAndAdmin(t *testing.T) {
	app, _ := newTestApp(t, nil)
	user := &client{t: t, handler: app.Handler(), ip: "198.51.100.4"}
	user.register("hook@example.com", "device-hook")

	ids := make([]string, 0, 3)
	for range 3 {
		code, body := user.do(http.MethodPost, "/api/v1/payments", nil)
		require.Equal(t, http.StatusOK, code)
		ids = append(ids, body["id"].(string))
	}

	hook := &client{t: t, handler: app.Handler(), ip: "203.0.113.50"}
	code, body := hook.do(http.MethodPost, "/api/v1/payments/webhook", map[string]string{"paymentId": ids[0]})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["status"])

	code, body = hook.do(http.MethodPost, "/api/v1/payments/webhook", map[string]string{"paymentId": ids[1], "status": "expired"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "expired", body["status"])

	code, _ = hook.do(http.MethodPost, "/api/v1/payments/webhook", map[string]string{"paymentId": ids[2], "status": "refunded"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = hook.do(http.MethodPost, "/api/v1/payments/webhook", map[string]string{"paymentId": "missing"})
	assert.Equal(t, http.StatusNotFound, code)

	admin := &client{t: t, handler: app.Handler(), ip: "203.0.113.60"}
	code, _ = admin.do(http.MethodGet, "/api/v1/admin/payments", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	admin.token = adminSecret
	code, body = admin.do(http.MethodGet, "/api/v1/admin/payments?status=pending", nil)
	require.Equal(t, http.StatusOK, code)
	pending := body["data"].([]any)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[2], pending[0].(map[string]any)["id"])

	code, body = admin.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/payments/%s/force-confirm", ids[2]), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["transitioned"])

	// истёкший платёж не переводится в completed
	code, body = admin.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/payments/%s/force-confirm", ids[1]), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["transitioned"])
	assert.Equal(t, "expired", body["payment"].(map[string]any)["status"])
}

func TestScenario_RegistrationAntiFraud(t *testing.T) {
	app, clock := newTestApp(t, nil)
	first := &client{t: t, handler: app.Handler(), ip: "198.51.100.20"}
	first.register("first@example.com", "shared-device")

	dup := &client{t: t, handler: app.Handler(), ip: "198.51.100.21"}
	code, body := dup.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "FIRST@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "email_taken", body["error"])

	sameIP := &client{t: t, handler: app.Handler(), ip: "198.51.100.20"}
	code, body = sameIP.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "second@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "ip_cooldown", body["error"])
	assert.Equal(t, float64(24*60*60), body["retryAfter"])

	clock.Advance(25 * time.Hour)
	code, _ = sameIP.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "second@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusCreated, code)

	code, body = first.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"login": "First@Example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["data"].(map[string]any)["token"])

	code, _ = first.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"login": "first@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestScenario_RateLimitAndAuth(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *config.Config) {
		cfg.RateLimits.Auth = config.RateLimit{Limit: 2, Window: 24 * time.Hour}
	})
	c := &client{t: t, handler: app.Handler(), ip: "198.51.100.30"}

	code, _ := c.do(http.MethodGet, "/api/v1/usage/status", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	var codes []int
	for range 3 {
		code, _ := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"login": "nobody", "password": "x"})
		codes = append(codes, code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)

	// другой IP считается отдельно
	other := &client{t: t, handler: app.Handler(), ip: "198.51.100.31"}
	code, _ = other.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"login": "nobody", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestScenario_ForwardedHeadersIgnored(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *config.Config) {
		cfg.RateLimits.Auth = config.RateLimit{Limit: 2, Window: 24 * time.Hour}
	})

	var codes []int
	for i := range 4 {
		c := &client{t: t, handler: app.Handler(), ip: "203.0.113.7", headers: map[string]string{
			"X-Forwarded-For": fmt.Sprintf("10.9.9.%d", i),
			"X-Real-IP":       fmt.Sprintf("10.8.8.%d", i),
		}}
		code, _ := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"email":    fmt.Sprintf("spoof%d@example.com", i),
			"password": "password123",
		})
		codes = append(codes, code)
	}
	// второй запрос упирается в IP cooldown, дальше срабатывает лимит
	assert.Equal(t, []int{
		http.StatusCreated, http.StatusForbidden,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestOperationalEndpoints(t *testing.T) {
	app, _ := newTestApp(t, nil)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRun_StopsOnCancel(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *config.Config) {
		cfg.Scheduler.Disabled = false
		cfg.Scheduler.Interval = 10 * time.Millisecond
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
