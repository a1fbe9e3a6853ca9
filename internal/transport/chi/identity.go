package chi

import (
	"context"
	"net/http"
	"strings"
)

// UsernameHeader carries the logged-in user. Sessions are out of scope, so the header is trusted as-is.
const UsernameHeader = "X-Username"

type usernameKey struct{}

// IdentityMiddleware reads UsernameHeader into the request context.
// An absent header means an anonymous visitor; a malformed one is rejected with 400.
func IdentityMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := strings.TrimSpace(r.Header.Get(UsernameHeader))
			if name == "" {
				next.ServeHTTP(w, r)
				return
			}
			if err := validateStruct(usernameParam{Username: name}); err != nil {
				writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), usernameKey{}, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UsernameFromContext returns the logged-in username, or "" for anonymous requests.
func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey{}).(string)
	return name
}
