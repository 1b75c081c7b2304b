package gate

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"taskboard/internal/api"
	"taskboard/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// IdentityContextKey holds the identity of a request that passed the gate.
const IdentityContextKey contextKey = "identity"

// RetryAfter is the Retry-After value sent while the session loads.
const RetryAfter = 1

// IdentityFrom returns the identity attached by Require.
func IdentityFrom(ctx context.Context) (*api.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(*api.Identity)
	return id, ok && id != nil
}

// Require returns middleware that guards protected views.
//
// Responses:
//   - 503 with Retry-After while the session is loading
//   - 302 to /login when nobody is signed in
//   - otherwise the next handler, with the identity in the request context
func Require(s State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.Ready() {
				w.Header().Set("Retry-After", strconv.Itoa(RetryAfter))
				auth.WriteJSONError(w, http.StatusServiceUnavailable, "session loading")
				return
			}

			id := s.Current()
			if id == nil {
				log.Printf("redirecting anonymous request for %s to %s", r.URL.Path, LoginPath)
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
