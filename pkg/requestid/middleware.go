package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	Header      = "X-Request-ID"
	maxIDLength = 128
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// New returns a fresh request ID.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id may be propagated as is.
func IsValid(id string) bool {
	return id != "" && len(id) <= maxIDLength && validID.MatchString(id)
}

// Middleware reuses a valid incoming X-Request-ID or generates one, stores
// it in the request context and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !IsValid(id) {
			id = New()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}
