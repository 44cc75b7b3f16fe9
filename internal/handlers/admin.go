package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
	"github.com/letterboxhq/letterbox/pkg/pg"
)

// AdminHandler serves account-admin endpoints: managing the users of
// the admin's own account.
type AdminHandler struct {
	users store.UserStore
	log   *slog.Logger
}

func NewAdminHandler(users store.UserStore, log *slog.Logger) *AdminHandler {
	return &AdminHandler{users: users, log: log}
}

func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.AccountID == nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	users, err := h.users.ListUsersByAccount(r.Context(), *id.AccountID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list users", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondData(w, http.StatusOK, viewUsers(users))
}

// HandleCreateUser adds a user to the admin's account. The local part
// of the email becomes the user's mailbox within the account domain.
func (h *AdminHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.AccountID == nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	role := models.RoleUser
	if req.Role != "" {
		role = models.Role(req.Role)
		if role != models.RoleUser && role != models.RoleAdmin {
			respondError(w, http.StatusBadRequest, "role must be user or admin")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid password")
		return
	}

	user, err := h.users.CreateUser(r.Context(), store.CreateUserParams{
		AccountID:    id.AccountID,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			respondError(w, http.StatusConflict, "email is already taken")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to create user", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondData(w, http.StatusCreated, viewUser(user))
}

// HandleCheckMailbox reports whether a mailbox local part is still free
// within the admin's account domain.
func (h *AdminHandler) HandleCheckMailbox(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.AccountID == nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	localPart := strings.TrimSpace(r.URL.Query().Get("local_part"))
	if localPart == "" || strings.Contains(localPart, "@") {
		respondError(w, http.StatusBadRequest, "local_part must be the address portion before @")
		return
	}

	_, err := h.users.FindMailboxUser(r.Context(), *id.AccountID, localPart)
	switch {
	case err == nil:
		respondData(w, http.StatusOK, map[string]bool{"available": false})
	case errors.Is(err, store.ErrNotFound):
		respondData(w, http.StatusOK, map[string]bool{"available": true})
	default:
		h.log.ErrorContext(r.Context(), "failed to check mailbox", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleSetUserActive activates or deactivates a user in the admin's
// account. Deactivation revokes access without destroying history.
func (h *AdminHandler) HandleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.AccountID == nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID == id.UserID {
		respondError(w, http.StatusBadRequest, "cannot change your own active state")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	target, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to load user", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if target.AccountID == nil || *target.AccountID != *id.AccountID {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.users.SetUserActive(r.Context(), userID, req.Active); err != nil {
		h.log.ErrorContext(r.Context(), "failed to update user state", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(w, http.StatusOK, "user updated")
}
