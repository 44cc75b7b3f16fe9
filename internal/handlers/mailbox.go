package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/policy"
	"github.com/letterboxhq/letterbox/internal/store"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// MailboxHandler serves the email listing endpoints. Results are scoped
// by the same visibility rules the event stream applies.
type MailboxHandler struct {
	emails store.EmailStore
	log    *slog.Logger
}

func NewMailboxHandler(emails store.EmailStore, log *slog.Logger) *MailboxHandler {
	return &MailboxHandler{emails: emails, log: log}
}

// HandleRecentEmails returns the caller's most recent emails, newest
// first. Sysadmins see all accounts, admins their account, users only
// their own mailbox.
func (h *MailboxHandler) HandleRecentEmails(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	emails, err := h.emails.ListRecentEmails(r.Context(), policy.ScopeFor(id), limit)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list recent emails", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondData(w, http.StatusOK, viewEmails(emails))
}
