// Package requesttime pins one "now" per HTTP request so that the future-date
// check, stored timestamps and audit events of a request agree.
package requesttime

import (
	"net/http"
	"time"

	"cpcaisse/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
