package middlewarectx

import (
	"net"
	"net/http"
)

// ClientIP адрес клиента без порта. Берётся только из RemoteAddr:
// X-Forwarded-For и X-Real-IP задаёт сам клиент.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
