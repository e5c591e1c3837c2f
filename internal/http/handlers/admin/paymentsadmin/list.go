// Package paymentsadmin список всех платежей для администратора.
package paymentsadmin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentview"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Service выборка платежей.
type Service interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
}

// Handler обрабатывает GET /admin/payments.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Все платежи
// @Tags Admin
// @Produce  json
// @Security AdminAuth
// @Param status query string false "pending, completed или expired"
// @Param limit query int false "1..500"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный фильтр"
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Router /admin/payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.payments"

	filter, err := parseFilter(r)
	if err != nil {
		h.log.Info("invalid payments filter", slog.String("op", op), sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.ReasonInvalidRequest))
		return
	}

	payments, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.log.Error("failed to list payments",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.ReasonInternal))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(paymentview.AdminList(payments)))
}

type filterError string

func (e filterError) Error() string { return string(e) }

func parseFilter(r *http.Request) (models.PaymentFilter, error) {
	q := r.URL.Query()
	filter := models.PaymentFilter{Limit: defaultLimit}

	if raw := q.Get("status"); raw != "" {
		status := models.PaymentStatus(raw)
		if !status.Valid() {
			return filter, filterError("invalid status")
		}
		filter.Status = &status
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			return filter, filterError("invalid limit")
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, filterError("invalid offset")
		}
		filter.Offset = n
	}
	return filter, nil
}
