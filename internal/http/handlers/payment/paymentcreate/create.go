// Package paymentcreate создаёт платёжный запрос PIX на покупку премиума.
package paymentcreate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentview"
	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// Service создаёт платежи.
type Service interface {
	Create(ctx context.Context, userUID string, amount int64) (*models.Payment, error)
	Price() int64
}

// Response ответ на создание платежа.
type Response struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	PaymentCode string `json:"paymentCode"`
	ExpiresIn   int    `json:"expiresIn"` // секунд до истечения
}

// Handler обрабатывает POST /payments.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Создать платеж
// @Description Создает pending-платеж на цену премиума и возвращает BR Code для кошелька
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} Response "Платеж создан"
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"

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

	p, err := h.svc.Create(r.Context(), uid, h.svc.Price())
	if err != nil {
		status, reason := paymentview.StatusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to create payment", sl.Err(err))
		}
		render.Status(r, status)
		render.JSON(w, r, response.Error(reason))
		return
	}

	render.JSON(w, r, Response{
		ID:          p.ID,
		Amount:      p.Amount,
		PaymentCode: p.PaymentCode,
		ExpiresIn:   int(p.ExpiresAt.Sub(p.CreatedAt).Seconds()),
	})
}
