package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-gate/internal/http/response"
)

// AdminOnly пропускает запросы с заголовком "Authorization: Bearer <secret>".
// С пустым secret админские маршруты закрыты полностью.
func AdminOnly(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				log.Warn("admin access denied", slog.String("ip", ClientIP(r)))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.ReasonUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
