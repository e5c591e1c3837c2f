// Package entitlement управляет уровнем доступа пользователя: бесплатный
// или премиум до заданной даты. Премиум вычисляется на момент чтения
// из tier и premium_until, истёкший срок означает бесплатный уровень.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/events"
	"github.com/magabrotheeeer/credit-gate/internal/metrics"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// UserRepository описывает доступ к пользователям.
type UserRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	ActivatePremium(ctx context.Context, userUID string, until time.Time) error
}

// Service EntitlementManager.
type Service struct {
	users     UserRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт сервис.
func New(users UserRepository, publisher events.Publisher, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		users:     users,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ActivatePremium выставляет premium_until = now + days. Повторный вызов
// перезаписывает дату, а не суммирует сроки.
func (s *Service) ActivatePremium(ctx context.Context, userUID string, days int) (time.Time, error) {
	const op = "entitlement.ActivatePremium"
	until := s.now().UTC().AddDate(0, 0, days)
	if err := s.users.ActivatePremium(ctx, userUID, until); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	s.Activated(ctx, userUID, until)
	return until, nil
}

// Activated фиксирует уже сохранённую выдачу премиума: метрика, лог, событие.
// Платёжный шлюз выдаёт премиум в одной транзакции с подтверждением платежа
// и сообщает об этом сюда.
func (s *Service) Activated(ctx context.Context, userUID string, until time.Time) {
	s.metrics.PremiumActivations.Inc()
	s.log.Info("premium activated",
		slog.String("user_uid", userUID),
		slog.Time("until", until))
	s.publisher.Publish(ctx, events.Event{
		Type:       events.PremiumActivated,
		UserUID:    userUID,
		Until:      &until,
		OccurredAt: s.now(),
	})
}

// Get возвращает права пользователя на текущий момент.
func (s *Service) Get(ctx context.Context, userUID string) (*models.Entitlement, error) {
	const op = "entitlement.Get"
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return Of(user, s.now()), nil
}

// Of строит снимок прав пользователя на момент now.
func Of(user *models.User, now time.Time) *models.Entitlement {
	e := &models.Entitlement{
		UserUID:     user.UUID,
		IsPremium:   user.IsPremium(now),
		FreeCredits: user.FreeCredits,
	}
	if e.IsPremium {
		until := *user.PremiumUntil
		e.PremiumUntil = &until
	}
	return e
}
