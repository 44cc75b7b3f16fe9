package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/pkg/ratelimit"
)

// RouterDeps holds everything the router needs.
type RouterDeps struct {
	Auth     *AuthHandler
	Mailbox  *MailboxHandler
	Mail     *MailHandler
	Admin    *AdminHandler
	Sysadmin *SysadminHandler
	Webhook  *WebhookHandler
	Stream   http.Handler
	AuthSvc  *auth.Service
	// LoginLimiter throttles login and signup attempts per client IP.
	// Optional.
	LoginLimiter ratelimit.Limiter
	// Health serves liveness/readiness; nil falls back to a plain 200.
	Health http.HandlerFunc
}

// NewRouter wires all routes into a chi router.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	health := deps.Health
	if health == nil {
		health = func(w http.ResponseWriter, _ *http.Request) {
			respondMessage(w, http.StatusOK, "ok")
		}
	}
	r.Get("/healthz", health)

	// Provider callbacks. Shared-secret auth, no session.
	r.Post("/webhooks/email", deps.Webhook.HandleCallback)

	// Public auth endpoints. Self-signup shares the login throttle.
	if deps.LoginLimiter != nil {
		throttled := r.With(ratelimit.Middleware(deps.LoginLimiter, ratelimit.ByIP))
		throttled.Post("/auth/login", deps.Auth.HandleLogin)
		throttled.Post("/auth/register", deps.Auth.HandleRegister)
	} else {
		r.Post("/auth/login", deps.Auth.HandleLogin)
		r.Post("/auth/register", deps.Auth.HandleRegister)
	}

	// Session-authenticated API.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.AuthSvc))

		r.Post("/auth/logout", deps.Auth.HandleLogout)
		r.Get("/auth/me", deps.Auth.HandleMe)

		r.Get("/events/stream", deps.Stream.ServeHTTP)
		r.Get("/emails/recent", deps.Mailbox.HandleRecentEmails)
		r.Post("/emails/send", deps.Mail.HandleSend)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin, models.RoleSysadmin))

			r.Get("/users", deps.Admin.HandleListUsers)
			r.Post("/users", deps.Admin.HandleCreateUser)
			r.Patch("/users/{id}/active", deps.Admin.HandleSetUserActive)
			r.Get("/mailboxes/availability", deps.Admin.HandleCheckMailbox)
		})

		r.Route("/sysadmin", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleSysadmin))

			r.Get("/accounts", deps.Sysadmin.HandleListAccounts)
			r.Post("/accounts", deps.Sysadmin.HandleCreateAccount)
			r.Patch("/accounts/{id}/active", deps.Sysadmin.HandleSetAccountActive)
		})
	})

	return r
}
