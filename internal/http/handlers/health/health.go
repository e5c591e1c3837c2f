// Package health отдаёт состояние процесса и готовность хранилища.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/response"
	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
)

// ReadyFunc проверяет готовность зависимостей. nil означает, что проверять нечего.
type ReadyFunc func(ctx context.Context) error

// Handler обрабатывает GET /healthz.
type Handler struct {
	log   *slog.Logger
	ready ReadyFunc
}

// New создаёт обработчик.
func New(log *slog.Logger, ready ReadyFunc) *Handler {
	return &Handler{
		log:   log,
		ready: ready,
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /healthz [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.Error("storage is not ready", slog.String("op", op), sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("storage is not ready"))
			return
		}
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
	}))
}
