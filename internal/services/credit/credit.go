// Package credit реализует общий счётчик бесплатных использований.
// Списание выполняется одним условным UPDATE в хранилище, поэтому две
// параллельные вкладки одного пользователя не уведут счётчик ниже нуля.
package credit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/events"
	"github.com/magabrotheeeer/credit-gate/internal/metrics"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// Store описывает операции хранилища, нужные счётчику.
type Store interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	DecrementFreeCredits(ctx context.Context, userUID string) (int, bool, error)
}

// Result решение по кредиту. Отказ не является ошибкой.
type Result struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Premium   bool `json:"isPremium"`
}

// Ledger CreditLedger.
type Ledger struct {
	store     Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт счётчик.
func New(store Store, publisher events.Publisher, m *metrics.Metrics, log *slog.Logger) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Deduct списывает один кредит за использование feature. Для действующего
// премиума всегда разрешает и не трогает счётчик.
func (l *Ledger) Deduct(ctx context.Context, userUID, feature string) (Result, error) {
	const op = "credit.Deduct"

	user, err := l.store.GetUser(ctx, userUID)
	if err != nil {
		l.metrics.CreditDecisions.WithLabelValues(feature, "error").Inc()
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsPremium(l.now()) {
		l.metrics.CreditDecisions.WithLabelValues(feature, "premium").Inc()
		l.log.Info("premium feature use",
			slog.String("user_uid", userUID),
			slog.String("feature", feature))
		return Result{Allowed: true, Remaining: user.FreeCredits, Premium: true}, nil
	}

	remaining, ok, err := l.store.DecrementFreeCredits(ctx, userUID)
	if err != nil {
		l.metrics.CreditDecisions.WithLabelValues(feature, "error").Inc()
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	eventType, result := events.CreditConsumed, "allowed"
	if !ok {
		eventType, result = events.CreditDenied, "denied"
	}
	l.metrics.CreditDecisions.WithLabelValues(feature, result).Inc()
	l.log.Info("credit usage",
		slog.String("user_uid", userUID),
		slog.String("feature", feature),
		slog.Bool("allowed", ok),
		slog.Int("remaining", remaining))
	l.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		UserUID:    userUID,
		Feature:    feature,
		Remaining:  events.Remaining(remaining),
		OccurredAt: l.now(),
	})

	return Result{Allowed: ok, Remaining: remaining}, nil
}

// Peek возвращает состояние без изменений.
func (l *Ledger) Peek(ctx context.Context, userUID string) (Result, error) {
	const op = "credit.Peek"
	user, err := l.store.GetUser(ctx, userUID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	premium := user.IsPremium(l.now())
	return Result{
		Allowed:   premium || user.FreeCredits > 0,
		Remaining: user.FreeCredits,
		Premium:   premium,
	}, nil
}
