// Package features обработчик платной функции. Кредит к этому моменту уже
// списан UsageGuard; обработчик возвращает результат и остаток.
package features

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
)

// Result ответ платной функции.
type Result struct {
	Feature   string `json:"feature"`
	Remaining int    `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
}

// Handler обрабатывает /features/{feature}.
type Handler struct {
	log *slog.Logger
}

// New создаёт обработчик.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// Name извлекает имя функции из пути для UsageGuard.
func Name(r *http.Request) string {
	return chi.URLParam(r, "feature")
}

// ServeHTTP godoc
// @Summary Вызов платной функции
// @Tags Features
// @Produce  json
// @Security BearerAuth
// @Param feature path string true "Имя функции"
// @Success 200 {object} Result
// @Failure 403 {object} response.DeniedResponse "Кредиты закончились"
// @Router /features/{feature} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, _ := middlewarectx.CreditFromContext(r.Context())
	render.JSON(w, r, Result{
		Feature:   Name(r),
		Remaining: res.Remaining,
		Unlimited: res.Premium,
	})
}
