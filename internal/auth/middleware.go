package auth

import (
	"net/http"
	"slices"

	"github.com/letterboxhq/letterbox/internal/models"
)

// SessionCookie is the cookie carrying the opaque session token.
const SessionCookie = "letterbox_session"

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + msg + `"}`))
}

// RequireAuth returns middleware that enforces authentication for API
// routes. A streaming connection attempt without a valid identity is
// rejected here, before any connection resources are allocated.
func RequireAuth(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				deny(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			user, err := svc.ValidateSession(r.Context(), cookie.Value)
			if err != nil {
				deny(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := WithIdentity(r.Context(), IdentityOf(user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that allows only the listed roles.
// Must run after RequireAuth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok || !slices.Contains(roles, id.Role) {
				deny(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
