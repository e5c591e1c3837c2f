// Package paymentview общее JSON-представление платежа и отображение
// ошибок платёжного сервиса в HTTP-статусы.
package paymentview

import (
	"errors"
	"net/http"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

// View платёж в ответе API.
type View struct {
	ID          string               `json:"id"`
	Status      models.PaymentStatus `json:"status"`
	Amount      int64                `json:"amount"`
	PaymentCode string               `json:"paymentCode,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	ConfirmedAt *time.Time           `json:"confirmedAt,omitempty"`
}

// AdminView платёж с владельцем для админских маршрутов.
type AdminView struct {
	View
	UserUID string `json:"userId"`
}

// FromModel собирает View. Код оплаты отдаётся только пока платёж ожидает оплаты.
func FromModel(p *models.Payment) View {
	v := View{
		ID:          p.ID,
		Status:      p.Status,
		Amount:      p.Amount,
		CreatedAt:   p.CreatedAt,
		ExpiresAt:   p.ExpiresAt,
		ConfirmedAt: p.ConfirmedAt,
	}
	if p.Status == models.PaymentPending {
		v.PaymentCode = p.PaymentCode
	}
	return v
}

// List собирает срез View.
func List(payments []*models.Payment) []View {
	out := make([]View, 0, len(payments))
	for _, p := range payments {
		out = append(out, FromModel(p))
	}
	return out
}

// AdminList собирает срез AdminView.
func AdminList(payments []*models.Payment) []AdminView {
	out := make([]AdminView, 0, len(payments))
	for _, p := range payments {
		out = append(out, AdminView{View: FromModel(p), UserUID: p.UserUID})
	}
	return out
}

// StatusFor HTTP-статус и машиночитаемая причина для ошибки сервиса.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrPaymentNotFound):
		return http.StatusNotFound, response.ReasonNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, response.ReasonForbidden
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusUnauthorized, response.ReasonUnauthorized
	case errors.Is(err, payment.ErrInvalidStatus), errors.Is(err, payment.ErrInvalidAmount):
		return http.StatusBadRequest, response.ReasonInvalidRequest
	default:
		return http.StatusInternalServerError, response.ReasonInternal
	}
}
