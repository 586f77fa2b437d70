package request

import "net/http"

// DefaultBodyLimit is the maximum accepted request body.
const DefaultBodyLimit = 2 << 20

// BodyLimit caps request bodies with http.MaxBytesReader. Decoders surface the
// overflow as 413.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
