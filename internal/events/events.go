// Package events публикует события биллинга: списание и отказ по кредитам,
// создание и завершение платежа, активация премиума. События служат только
// для наблюдаемости и не влияют на решения.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
)

// Типы событий, они же ключи маршрутизации.
const (
	CreditConsumed   = "credit.consumed"
	CreditDenied     = "credit.denied"
	PaymentCreated   = "payment.created"
	PaymentCompleted = "payment.completed"
	PaymentExpired   = "payment.expired"
	PremiumActivated = "premium.activated"
)

// Event сообщение шины событий.
type Event struct {
	Type       string     `json:"type"`
	UserUID    string     `json:"userId"`
	Feature    string     `json:"feature,omitempty"`
	Remaining  *int       `json:"remaining,omitempty"`
	PaymentID  string     `json:"paymentId,omitempty"`
	Source     string     `json:"source,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Publisher отправляет событие. Ошибка публикации не должна влиять на вызывающего.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// LogPublisher пишет события в лог.
type LogPublisher struct {
	log *slog.Logger
}

// NewLogPublisher создаёт публикатор, пишущий в log.
func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish реализует Publisher.
func (p *LogPublisher) Publish(ctx context.Context, e Event) {
	attrs := []any{
		slog.String("type", e.Type),
		slog.String("user_uid", e.UserUID),
	}
	if e.Feature != "" {
		attrs = append(attrs, slog.String("feature", e.Feature))
	}
	if e.Remaining != nil {
		attrs = append(attrs, slog.Int("remaining", *e.Remaining))
	}
	if e.PaymentID != "" {
		attrs = append(attrs, slog.String("payment_id", e.PaymentID))
	}
	if e.Source != "" {
		attrs = append(attrs, slog.String("source", e.Source))
	}
	p.log.InfoContext(ctx, "billing event", attrs...)
}

// AMQPPublisher публикует события в обменник rabbitmq.Exchange.
type AMQPPublisher struct {
	mu  sync.Mutex
	ch  rabbitmq.Channel
	log *slog.Logger
}

// NewAMQPPublisher создаёт публикатор поверх открытого канала.
func NewAMQPPublisher(ch rabbitmq.Channel, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, log: log}
}

// Publish реализует Publisher. Ошибки только логируются.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) {
	p.mu.Lock()
	err := rabbitmq.PublishMessage(p.ch, rabbitmq.Exchange, e.Type, e)
	p.mu.Unlock()
	if err != nil {
		p.log.WarnContext(ctx, "failed to publish event",
			slog.String("type", e.Type),
			slog.String("user_uid", e.UserUID),
			sl.Err(err))
	}
}

// Remaining удобный конструктор указателя для Event.Remaining.
func Remaining(n int) *int {
	return &n
}
