package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/store"
)

// AuthHandler serves account self-signup, login, logout and the
// current-user endpoint.
type AuthHandler struct {
	svc        *auth.Service
	accounts   store.AccountStore
	users      store.UserStore
	sessionTTL time.Duration
	secure     bool
	log        *slog.Logger
}

func NewAuthHandler(svc *auth.Service, accounts store.AccountStore, users store.UserStore, sessionTTL time.Duration, secureCookies bool, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:        svc,
		accounts:   accounts,
		users:      users,
		sessionTTL: sessionTTL,
		secure:     secureCookies,
		log:        log,
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleRegister is the public self-signup endpoint: it provisions a
// tenant account with its first admin user and logs that admin in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	account, admin, err := provisionAccount(r.Context(), h.accounts, h.users, req)
	if err != nil {
		switch {
		case errors.Is(err, errDomainTaken), errors.Is(err, errAdminEmailTaken):
			respondError(w, http.StatusConflict, err.Error())
		default:
			h.log.ErrorContext(r.Context(), "failed to register account", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	// The account exists either way; a session failure just means the
	// admin logs in manually.
	token, err := h.svc.StartSession(r.Context(), admin)
	if err != nil {
		h.log.WarnContext(r.Context(), "failed to open session after signup",
			slog.Int64("user_id", admin.ID),
			slog.Any("error", err))
	} else {
		h.setSessionCookie(w, token)
	}

	respondData(w, http.StatusCreated, map[string]any{
		"account": viewAccount(account),
		"user":    viewUser(admin),
	})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInactiveUser):
			respondError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			h.log.ErrorContext(r.Context(), "login failed", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.setSessionCookie(w, token)
	respondData(w, http.StatusOK, viewUser(user))
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.svc.Logout(r.Context(), cookie.Value); err != nil {
			h.log.WarnContext(r.Context(), "failed to destroy session", slog.Any("error", err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	respondMessage(w, http.StatusOK, "logged out")
}

// HandleMe returns the authenticated user's profile.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to load current user", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondData(w, http.StatusOK, viewUser(user))
}
