// Package forceconfirm ручное подтверждение платежа администратором.
package forceconfirm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentview"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

// Service подтверждает платёж без учёта срока.
type Service interface {
	ForceConfirm(ctx context.Context, id string) (*payment.Confirmation, error)
}

// Response результат подтверждения.
type Response struct {
	Payment      paymentview.AdminView `json:"payment"`
	Transitioned bool                  `json:"transitioned"`
	PremiumUntil *time.Time            `json:"premiumUntil,omitempty"`
}

// Handler обрабатывает POST /admin/payments/{id}/force-confirm.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Принудительно подтвердить платеж
// @Tags Admin
// @Produce  json
// @Security AdminAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Failure 404 {object} response.ErrorResponse "Платеж не найден"
// @Router /admin/payments/{id}/force-confirm [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.forceconfirm"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	id := chi.URLParam(r, "id")

	conf, err := h.svc.ForceConfirm(r.Context(), id)
	if err != nil {
		status, reason := paymentview.StatusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to force-confirm payment", slog.String("payment_id", id), sl.Err(err))
		}
		render.Status(r, status)
		render.JSON(w, r, response.Error(reason))
		return
	}

	log.Info("payment force-confirmed",
		slog.String("payment_id", id),
		slog.Bool("transitioned", conf.Transitioned))
	render.JSON(w, r, Response{
		Payment:      paymentview.AdminView{View: paymentview.FromModel(conf.Payment), UserUID: conf.Payment.UserUID},
		Transitioned: conf.Transitioned,
		PremiumUntil: conf.PremiumUntil,
	})
}
