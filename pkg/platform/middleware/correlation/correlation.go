// Package correlation propagates the correlation id across the HTTP surface.
// Inbound requests may carry X-Correlation-ID; when absent one is minted, and
// the effective id is echoed on the response so clients can reference it.
package correlation

import (
	"net/http"

	"synergy/pkg/requestcontext"
)

const Header = "X-Correlation-ID"

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithCorrelationID(r.Context(), r.Header.Get(Header))
		w.Header().Set(Header, requestcontext.CorrelationID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
