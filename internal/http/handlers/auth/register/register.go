// Package register реализует HTTP-обработчик регистрации пользователя.
// Перед созданием аккаунта запрос проходит антифрод по IP и отпечатку устройства.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/auth"
)

// FingerprintHeader заголовок с отпечатком устройства, если его нет в теле.
const FingerprintHeader = "X-Device-Fingerprint"

// Request входные данные для регистрации
type Request struct {
	Email       string `json:"email" validate:"required,email"`
	Username    string `json:"username" validate:"omitempty,min=3,max=50"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Fingerprint string `json:"fingerprint" validate:"max=512"`
}

// Service регистрирует пользователя.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Registration, error)
}

// Handler обрабатывает POST /auth/register.
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
// @Summary Регистрация пользователя
// @Description Создаёт аккаунт с бесплатными кредитами и возвращает JWT.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные регистрации"
// @Success 201 {object} response.Response "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.DeniedResponse "Отказ антифрода"
// @Failure 409 {object} response.ErrorResponse "Username занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.ReasonInvalidRequest))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	if req.Fingerprint == "" {
		req.Fingerprint = r.Header.Get(FingerprintHeader)
	}

	reg, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		IP:          middlewarectx.ClientIP(r),
		Fingerprint: req.Fingerprint,
	})
	var rejected *auth.RejectedError
	switch {
	case errors.As(err, &rejected):
		retryAfter := int(math.Ceil(rejected.Decision.RetryAfter.Seconds()))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Denied(rejected.Decision.Reason, 0, retryAfter))
		return
	case errors.Is(err, models.ErrUsernameTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("username already taken"))
		return
	case err != nil:
		log.Error("registration failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.ReasonInternal))
		return
	}

	log.Info("user registered", slog.String("user_uid", reg.UserUID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_uid":     reg.UserUID,
		"token":        reg.Token,
		"free_credits": reg.FreeCredits,
	}))
}
