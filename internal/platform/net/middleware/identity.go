package middleware

import (
	"net/http"
	"strings"

	pnet "hush/internal/platform/net"
)

// IdentityHeader carries the caller's anonymous identity id
const IdentityHeader = "X-Hush-Identity"

// Identity lifts the anonymous identity header onto the request context.
// Missing or blank headers pass through unset; handlers decide whether
// an identity is required for the operation
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(IdentityHeader))
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := pnet.WithRequest(r.Context(), pnet.RequestID(r.Context()), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
