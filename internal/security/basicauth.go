package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/noah-isme/storefront-checkout/internal/common"
)

// BasicAuth guards staff routes with a single shared credential. An empty user leaves the
// routes closed rather than open.
func BasicAuth(realm, user, pass string) func(http.Handler) http.Handler {
	user = strings.TrimSpace(user)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user == "" {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access is not configured", nil)
				return
			}
			u, p, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
