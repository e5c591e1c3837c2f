// Package antifraud проверяет регистрацию на дубликаты аккаунтов по email,
// IP-адресу и отпечатку устройства. Отпечаток хранится только как SHA-256.
package antifraud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/metrics"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// Причины отказа.
const (
	ReasonEmailTaken  = "email_taken"
	ReasonIPCooldown  = "ip_cooldown"
	ReasonDeviceLimit = "device_limit"
)

// Store описывает хранилище записей антифрода.
type Store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	LastRegistrationFromIP(ctx context.Context, ip string, since time.Time) (*time.Time, error)
	CountAccountsByFingerprint(ctx context.Context, fingerprintHash string, since time.Time) (int, error)
	AddFraudRecord(ctx context.Context, rec models.FraudRecord) error
	PruneFraudRecords(ctx context.Context, before time.Time) (int64, error)
}

// Config пороги проверок.
type Config struct {
	IPCooldown           time.Duration
	MaxAccountsPerDevice int
	Retention            time.Duration
}

// Decision результат проверки. RetryAfter задан только для ReasonIPCooldown.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

// Guard AntiFraudGuard.
type Guard struct {
	store   Store
	cfg     Config
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// New создаёт проверку.
func New(store Store, cfg Config, m *metrics.Metrics, log *slog.Logger) *Guard {
	return &Guard{
		store:   store,
		cfg:     cfg,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// CanRegister проверяет правила по порядку, первое нарушение побеждает:
// email уже есть, с IP недавно регистрировались, устройство уже держит
// не меньше MaxAccountsPerDevice аккаунтов.
func (g *Guard) CanRegister(ctx context.Context, ip, fingerprint, email string) (Decision, error) {
	const op = "antifraud.CanRegister"
	now := g.now()

	exists, err := g.store.EmailExists(ctx, NormalizeEmail(email))
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return g.reject(ReasonEmailTaken, 0), nil
	}

	if ip != "" {
		last, err := g.store.LastRegistrationFromIP(ctx, ip, now.Add(-g.cfg.IPCooldown))
		if err != nil {
			return Decision{}, fmt.Errorf("%s: %w", op, err)
		}
		if last != nil {
			wait := last.Add(g.cfg.IPCooldown).Sub(now)
			if wait > 0 {
				return g.reject(ReasonIPCooldown, wait), nil
			}
		}
	}

	if fingerprint != "" {
		n, err := g.store.CountAccountsByFingerprint(ctx, HashFingerprint(fingerprint), now.Add(-g.cfg.Retention))
		if err != nil {
			return Decision{}, fmt.Errorf("%s: %w", op, err)
		}
		if n >= g.cfg.MaxAccountsPerDevice {
			return g.reject(ReasonDeviceLimit, 0), nil
		}
	}

	return Decision{Allowed: true}, nil
}

// Register добавляет запись и удаляет записи старше Retention.
// Ошибка очистки только логируется.
func (g *Guard) Register(ctx context.Context, ip, fingerprint, email string) error {
	const op = "antifraud.Register"
	rec := models.FraudRecord{
		IP:        ip,
		Email:     NormalizeEmail(email),
		CreatedAt: g.now().UTC(),
	}
	if fingerprint != "" {
		rec.FingerprintHash = HashFingerprint(fingerprint)
	}
	if err := g.store.AddFraudRecord(ctx, rec); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := g.Prune(ctx); err != nil {
		g.log.Warn("failed to prune fraud records", sl.Err(err))
	}
	return nil
}

// Prune удаляет записи старше Retention.
func (g *Guard) Prune(ctx context.Context) (int64, error) {
	const op = "antifraud.Prune"
	n, err := g.store.PruneFraudRecords(ctx, g.now().Add(-g.cfg.Retention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		g.log.Debug("pruned fraud records", slog.Int64("count", n))
	}
	return n, nil
}

func (g *Guard) reject(reason string, retryAfter time.Duration) Decision {
	g.metrics.RegistrationsRejected.WithLabelValues(reason).Inc()
	return Decision{Reason: reason, RetryAfter: retryAfter}
}

// HashFingerprint возвращает hex SHA-256 отпечатка устройства.
func HashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

// NormalizeEmail приводит email к нижнему регистру без пробелов по краям.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
