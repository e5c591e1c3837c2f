// Package paymentstatus отдаёт владельцу текущий статус платежа.
package paymentstatus

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentview"
	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

// Service читает платёж владельца.
type Service interface {
	Status(ctx context.Context, userUID, id string) (*models.Payment, error)
}

// Handler обрабатывает GET /payments/{id}.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Статус платежа
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} paymentview.View
// @Failure 403 {object} response.ErrorResponse "Чужой платеж"
// @Failure 404 {object} response.ErrorResponse "Платеж не найден"
// @Router /payments/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"

	uid, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.ReasonUnauthorized))
		return
	}
	id := chi.URLParam(r, "id")

	p, err := h.svc.Status(r.Context(), uid, id)
	if err != nil {
		status, reason := paymentview.StatusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error("failed to read payment",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("payment_id", id),
				sl.Err(err))
		}
		render.Status(r, status)
		render.JSON(w, r, response.Error(reason))
		return
	}
	render.JSON(w, r, paymentview.FromModel(p))
}
