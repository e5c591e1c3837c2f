// Package usage отдаёт состояние кредитов и премиума без списания.
package usage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
)

// Service читает состояние счётчика.
type Service interface {
	Peek(ctx context.Context, userUID string) (credit.Result, error)
}

// Status ответ GET /usage/status.
type Status struct {
	IsPremium        bool `json:"isPremium"`
	FreeCredits      int  `json:"freeCredits"`
	FreeCreditsLimit int  `json:"freeCreditsLimit"`
	Blocked          bool `json:"blocked"`
}

// Handler обрабатывает GET /usage/status.
type Handler struct {
	log   *slog.Logger
	svc   Service
	limit int
}

// New создаёт обработчик. limit число кредитов новой регистрации.
func New(log *slog.Logger, svc Service, limit int) *Handler {
	return &Handler{log: log, svc: svc, limit: limit}
}

// ServeHTTP godoc
// @Summary Состояние кредитов
// @Tags Credits
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} Status
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /usage/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.usage"

	uid, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.ReasonUnauthorized))
		return
	}

	res, err := h.svc.Peek(r.Context(), uid)
	if errors.Is(err, models.ErrUserNotFound) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.ReasonUnauthorized))
		return
	}
	if err != nil {
		h.log.Error("failed to read usage",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.ReasonInternal))
		return
	}

	render.JSON(w, r, Status{
		IsPremium:        res.Premium,
		FreeCredits:      res.Remaining,
		FreeCreditsLimit: h.limit,
		Blocked:          !res.Allowed,
	})
}
