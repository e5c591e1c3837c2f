package middlewarectx

import (
	"context"
	"net/http"
	"time"
)

// OperationTimeout ограничивает время обращения обработчика к хранилищу.
func OperationTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
