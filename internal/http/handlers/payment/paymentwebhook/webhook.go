// Package paymentwebhook принимает уведомления платёжной сети о статусе платежа.
package paymentwebhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/payment/paymentview"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

// Request уведомление. Пустой status означает completed.
type Request struct {
	PaymentID string               `json:"paymentId" validate:"required,max=64"`
	Status    models.PaymentStatus `json:"status"`
}

// Response текущее состояние платежа после обработки.
type Response struct {
	ID     string               `json:"id"`
	Status models.PaymentStatus `json:"status"`
}

// Service обрабатывает уведомление.
type Service interface {
	Webhook(ctx context.Context, id string, status models.PaymentStatus) (*payment.Confirmation, error)
}

// Handler обрабатывает POST /payments/webhook.
type Handler struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		svc:      svc,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Уведомление о платеже
// @Description completed или пустой статус подтверждает платеж и активирует премиум, expired отменяет
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Уведомление"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или статус"
// @Failure 404 {object} response.ErrorResponse "Платеж не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.ReasonInvalidRequest))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	conf, err := h.svc.Webhook(r.Context(), req.PaymentID, req.Status)
	if err != nil {
		status, reason := paymentview.StatusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to process webhook", slog.String("payment_id", req.PaymentID), sl.Err(err))
		}
		render.Status(r, status)
		render.JSON(w, r, response.Error(reason))
		return
	}

	log.Info("webhook processed",
		slog.String("payment_id", req.PaymentID),
		slog.String("status", string(conf.Payment.Status)),
		slog.Bool("transitioned", conf.Transitioned))
	render.JSON(w, r, Response{ID: conf.Payment.ID, Status: conf.Payment.Status})
}
