// Package paymentlist отдаёт пользователю историю его платежей.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentview"
	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service читает платежи пользователя.
type Service interface {
	ListMine(ctx context.Context, userUID string, limit int) ([]*models.Payment, error)
}

// Handler обрабатывает GET /payments.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Платежи пользователя
// @Description Последние платежи, новые первыми
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Сколько записей вернуть (1..100)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный limit"
// @Router /payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"

	uid, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.ReasonUnauthorized))
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.ReasonInvalidRequest))
			return
		}
		limit = n
	}

	payments, err := h.svc.ListMine(r.Context(), uid, limit)
	if err != nil {
		h.log.Error("failed to list payments",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.ReasonInternal))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(paymentview.List(payments)))
}
