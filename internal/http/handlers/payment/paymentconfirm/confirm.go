// Package paymentconfirm ручное подтверждение оплаты владельцем платежа.
package paymentconfirm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentview"
	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

// Service подтверждает платёж владельца.
type Service interface {
	ConfirmOwned(ctx context.Context, userUID, id string) (*payment.Confirmation, error)
}

// Response результат подтверждения.
type Response struct {
	ID           string               `json:"id"`
	Status       models.PaymentStatus `json:"status"`
	PremiumUntil *time.Time           `json:"premiumUntil,omitempty"`
}

// Handler обрабатывает POST /payments/{id}/confirm.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Подтвердить оплату
// @Description Переводит pending-платеж в completed и активирует премиум. Повторный вызов возвращает текущий статус.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} Response
// @Failure 403 {object} response.ErrorResponse "Чужой платеж"
// @Failure 404 {object} response.ErrorResponse "Платеж не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/{id}/confirm [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.confirm"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.ReasonUnauthorized))
		return
	}
	id := chi.URLParam(r, "id")

	conf, err := h.svc.ConfirmOwned(r.Context(), uid, id)
	if err != nil {
		status, reason := paymentview.StatusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to confirm payment", slog.String("payment_id", id), sl.Err(err))
		}
		render.Status(r, status)
		render.JSON(w, r, response.Error(reason))
		return
	}

	render.JSON(w, r, Response{
		ID:           conf.Payment.ID,
		Status:       conf.Payment.Status,
		PremiumUntil: conf.PremiumUntil,
	})
}
