// Package consume списывает один бесплатный кредит за использование функции.
package consume

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
)

// DefaultFeature имя функции, если клиент его не передал.
const DefaultFeature = "generic"

// Request тело запроса. Может отсутствовать.
type Request struct {
	Feature string `json:"feature" validate:"omitempty,max=64"`
}

// Service списывает кредит.
type Service interface {
	Deduct(ctx context.Context, userUID, feature string) (credit.Result, error)
}

// Handler обрабатывает POST /credits/consume.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Списать кредит
// @Description Списывает один бесплатный кредит. Для премиума счётчик не меняется.
// @Tags Credits
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request false "Функция"
// @Success 200 {object} credit.Result "Использование разрешено"
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 403 {object} response.DeniedResponse "Кредиты закончились"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /credits/consume [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.consume"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Info("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.ReasonInvalidRequest))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	if req.Feature == "" {
		req.Feature = DefaultFeature
	}

	res, err := h.service.Deduct(r.Context(), uid, req.Feature)
	if errors.Is(err, models.ErrUserNotFound) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.ReasonUnauthorized))
		return
	}
	if err != nil {
		log.Error("failed to deduct credit", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.ReasonInternal))
		return
	}
	if !res.Allowed {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.NoCredits(res.Remaining))
		return
	}
	render.JSON(w, r, res)
}
