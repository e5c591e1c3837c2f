// Package payment реализует жизненный цикл мгновенного платежа:
// pending → completed или pending → expired, без обратных переходов.
// Переход в completed и выдача премиума фиксируются хранилищем одной
// транзакцией: либо оба изменения видны, либо платёж остаётся pending и
// следующее подтверждение повторит попытку. Повторное подтверждение
// завершённого платежа ничего не меняет.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/credit-gate/internal/events"
	"github.com/magabrotheeeer/credit-gate/internal/lib/pixcode"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/metrics"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// Источники подтверждения, попадают в метрики и события.
const (
	SourceManual    = "manual"
	SourceWebhook   = "webhook"
	SourceScheduler = "scheduler"
	SourceAdmin     = "admin"
	SourceRepair    = "repair"
)

var (
	// ErrInvalidAmount сумма платежа не положительна.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidStatus неизвестный статус во входящем уведомлении.
	ErrInvalidStatus = errors.New("invalid payment status")
)

const statusCacheTTL = 10 * time.Minute

// Repository описывает хранилище платежей.
type Repository interface {
	CreatePayment(ctx context.Context, p models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	CompletePayment(ctx context.Context, id string, at, premiumUntil time.Time) (*models.Payment, bool, error)
	ExpirePayment(ctx context.Context, id string) (*models.Payment, bool, error)
	RepairConfirmedAt(ctx context.Context, id string, at, premiumUntil time.Time) (bool, error)
	ListPaymentsByUser(ctx context.Context, userUID string, limit int) ([]*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
}

// Activator получает уведомление о премиуме, уже сохранённом вместе с платежом.
type Activator interface {
	Activated(ctx context.Context, userUID string, until time.Time)
}

// Cache кэш платежей в конечном статусе.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Config параметры платежей.
type Config struct {
	Price        int64
	PremiumDays  int
	ExpiryWindow time.Duration
	PixKey       string
	MerchantName string
	MerchantCity string
}

// Confirmation результат подтверждения. Transitioned == true только у вызова,
// который перевёл платёж из pending.
type Confirmation struct {
	Payment      *models.Payment
	Transitioned bool
	PremiumUntil *time.Time
}

// Service PaymentGateway.
type Service struct {
	repo      Repository
	activator Activator
	cache     Cache
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	cfg       Config
	now       func() time.Time
}

// New создаёт сервис. cache может быть nil.
func New(repo Repository, activator Activator, cache Cache, publisher events.Publisher,
	m *metrics.Metrics, log *slog.Logger, cfg Config) *Service {
	return &Service{
		repo:      repo,
		activator: activator,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Price цена премиума в минимальных единицах валюты.
func (s *Service) Price() int64 {
	return s.cfg.Price
}

// Create создаёт pending-платёж на amount с BR Code для кошелька.
func (s *Service) Create(ctx context.Context, userUID string, amount int64) (*models.Payment, error) {
	const op = "payment.Create"
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	id := uuid.New()
	code, err := pixcode.Encode(pixcode.Payload{
		Key:          s.cfg.PixKey,
		MerchantName: s.cfg.MerchantName,
		MerchantCity: s.cfg.MerchantCity,
		Amount:       amount,
		TxID:         strings.ReplaceAll(id.String(), "-", "")[:25],
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	createdAt := s.now().UTC().Truncate(time.Microsecond)
	p := models.Payment{
		ID:          id.String(),
		UserUID:     userUID,
		Amount:      amount,
		Status:      models.PaymentPending,
		PaymentCode: code,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(s.cfg.ExpiryWindow),
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.PaymentsCreated.Inc()
	s.log.Info("payment created",
		slog.String("payment_id", p.ID),
		slog.String("user_uid", userUID),
		slog.Int64("amount", amount))
	s.publisher.Publish(ctx, events.Event{
		Type:       events.PaymentCreated,
		UserUID:    userUID,
		PaymentID:  p.ID,
		OccurredAt: createdAt,
	})
	return &p, nil
}

// Confirm переводит pending → completed и активирует премиум. Повторный вызов
// возвращает уже завершённую запись. Просроченный pending вместо этого
// переводится в expired.
func (s *Service) Confirm(ctx context.Context, id, source string) (*Confirmation, error) {
	const op = "payment.Confirm"
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status == models.PaymentPending && !s.now().Before(p.ExpiresAt) {
		expired, _, err := s.expire(ctx, id, source)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Confirmation{Payment: expired}, nil
	}
	return s.complete(ctx, id, source)
}

// ConfirmOwned подтверждает платёж от имени владельца.
func (s *Service) ConfirmOwned(ctx context.Context, userUID, id string) (*Confirmation, error) {
	const op = "payment.ConfirmOwned"
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.UserUID != userUID {
		return nil, models.ErrForbidden
	}
	return s.Confirm(ctx, id, SourceManual)
}

// ForceConfirm подтверждает pending-платёж администратором без учёта expires_at.
func (s *Service) ForceConfirm(ctx context.Context, id string) (*Confirmation, error) {
	return s.complete(ctx, id, SourceAdmin)
}

// Expire переводит pending → expired.
func (s *Service) Expire(ctx context.Context, id, source string) (*models.Payment, bool, error) {
	const op = "payment.Expire"
	p, transitioned, err := s.expire(ctx, id, source)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, transitioned, nil
}

// Webhook обрабатывает уведомление платёжной сети. Пустой статус
// равнозначен completed.
func (s *Service) Webhook(ctx context.Context, id string, status models.PaymentStatus) (*Confirmation, error) {
	switch status {
	case "", models.PaymentCompleted:
		return s.Confirm(ctx, id, SourceWebhook)
	case models.PaymentExpired:
		p, transitioned, err := s.Expire(ctx, id, SourceWebhook)
		if err != nil {
			return nil, err
		}
		return &Confirmation{Payment: p, Transitioned: transitioned}, nil
	default:
		return nil, ErrInvalidStatus
	}
}

// Status возвращает платёж владельцу. Если найден completed без
// confirmed_at, чтение исправляет запись и активирует премиум.
func (s *Service) Status(ctx context.Context, userUID, id string) (*models.Payment, error) {
	const op = "payment.Status"

	if p, ok := s.cached(ctx, id); ok {
		if p.UserUID != userUID {
			return nil, models.ErrForbidden
		}
		return p, nil
	}

	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.UserUID != userUID {
		return nil, models.ErrForbidden
	}

	if p.NeedsRepair() {
		if p, err = s.repair(ctx, p); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	s.store(ctx, p)
	return p, nil
}

// ListMine возвращает платежи пользователя, новые первыми.
func (s *Service) ListMine(ctx context.Context, userUID string, limit int) ([]*models.Payment, error) {
	const op = "payment.ListMine"
	list, err := s.repo.ListPaymentsByUser(ctx, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// List возвращает платежи для администратора.
func (s *Service) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	const op = "payment.List"
	list, err := s.repo.ListPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Service) complete(ctx context.Context, id, source string) (*Confirmation, error) {
	const op = "payment.complete"
	at := s.now().UTC().Truncate(time.Microsecond)
	until := s.premiumUntil(at)
	p, transitioned, err := s.repo.CompletePayment(ctx, id, at, until)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c := &Confirmation{Payment: p, Transitioned: transitioned}
	if !transitioned {
		return c, nil
	}

	s.metrics.PaymentTransitions.WithLabelValues(string(models.PaymentCompleted), source).Inc()
	s.log.Info("payment completed",
		slog.String("payment_id", id),
		slog.String("user_uid", p.UserUID),
		slog.String("source", source))
	s.publisher.Publish(ctx, events.Event{
		Type:       events.PaymentCompleted,
		UserUID:    p.UserUID,
		PaymentID:  id,
		Source:     source,
		OccurredAt: at,
	})

	s.activator.Activated(ctx, p.UserUID, until)
	c.PremiumUntil = &until
	return c, nil
}

func (s *Service) premiumUntil(at time.Time) time.Time {
	return at.AddDate(0, 0, s.cfg.PremiumDays)
}

func (s *Service) expire(ctx context.Context, id, source string) (*models.Payment, bool, error) {
	p, transitioned, err := s.repo.ExpirePayment(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if transitioned {
		s.metrics.PaymentTransitions.WithLabelValues(string(models.PaymentExpired), source).Inc()
		s.log.Info("payment expired",
			slog.String("payment_id", id),
			slog.String("source", source))
		s.publisher.Publish(ctx, events.Event{
			Type:       events.PaymentExpired,
			UserUID:    p.UserUID,
			PaymentID:  id,
			Source:     source,
			OccurredAt: s.now(),
		})
	}
	return p, transitioned, nil
}

func (s *Service) repair(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	at := s.now().UTC().Truncate(time.Microsecond)
	until := s.premiumUntil(at)
	repaired, err := s.repo.RepairConfirmedAt(ctx, p.ID, at, until)
	if err != nil {
		return nil, err
	}
	if repaired {
		s.log.Warn("repaired completed payment without confirmation time",
			slog.String("payment_id", p.ID),
			slog.String("user_uid", p.UserUID))
		s.metrics.PaymentTransitions.WithLabelValues(string(models.PaymentCompleted), SourceRepair).Inc()
		s.activator.Activated(ctx, p.UserUID, until)
	}
	return s.repo.GetPayment(ctx, p.ID)
}

func cacheKey(id string) string {
	return "payment:" + id
}

func (s *Service) cached(ctx context.Context, id string) (*models.Payment, bool) {
	if s.cache == nil {
		return nil, false
	}
	var p models.Payment
	found, err := s.cache.Get(ctx, cacheKey(id), &p)
	if err != nil {
		s.log.Warn("payment cache read failed", slog.String("payment_id", id), sl.Err(err))
		return nil, false
	}
	if !found || !p.Status.Terminal() || p.NeedsRepair() {
		return nil, false
	}
	return &p, true
}

// store кэширует только неизменяемые записи.
func (s *Service) store(ctx context.Context, p *models.Payment) {
	if s.cache == nil || !p.Status.Terminal() || p.NeedsRepair() {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(p.ID), p, statusCacheTTL); err != nil {
		s.log.Warn("payment cache write failed", slog.String("payment_id", p.ID), sl.Err(err))
	}
}
