package clientip

import "net/http"

// Middleware stores the address resolved by resolve in the request context.
// A nil resolve uses FromRequest.
func Middleware(resolve func(*http.Request) string) func(http.Handler) http.Handler {
	if resolve == nil {
		resolve = FromRequest
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), resolve(r))))
		})
	}
}
