package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/mailer"
	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
)

// MailHandler serves the outbound send endpoint.
type MailHandler struct {
	accounts store.AccountStore
	emails   store.EmailStore
	sender   mailer.Sender
	log      *slog.Logger
}

func NewMailHandler(accounts store.AccountStore, emails store.EmailStore, sender mailer.Sender, log *slog.Logger) *MailHandler {
	return &MailHandler{
		accounts: accounts,
		emails:   emails,
		sender:   sender,
		log:      log,
	}
}

// HandleSend submits an email through the caller's account and records
// it with status "sent". Later provider callbacks advance the status.
func (h *MailHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if id.AccountID == nil {
		respondError(w, http.StatusForbidden, "sending requires an account")
		return
	}

	var req struct {
		To      string `json:"to"`
		CC      string `json:"cc"`
		BCC     string `json:"bcc"`
		Subject string `json:"subject"`
		HTML    string `json:"html"`
		Text    string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	account, err := h.accounts.GetAccountByID(r.Context(), *id.AccountID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to load account", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !account.IsActive {
		respondError(w, http.StatusForbidden, "account is deactivated")
		return
	}

	params := mailer.SendParams{
		To:       req.To,
		CC:       req.CC,
		BCC:      req.BCC,
		Subject:  req.Subject,
		HTMLBody: req.HTML,
		TextBody: req.Text,
	}
	messageID, err := h.sender.Send(r.Context(), account, params)
	if err != nil {
		switch {
		case errors.Is(err, mailer.ErrInvalidParams):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.log.ErrorContext(r.Context(), "failed to send email",
				slog.Int64("account_id", account.ID),
				slog.Any("error", err))
			respondError(w, http.StatusBadGateway, "failed to send email")
		}
		return
	}

	status := models.StatusSent
	createParams := store.CreateEmailParams{
		AccountID:      account.ID,
		UserID:         &id.UserID,
		Direction:      models.DirectionOutbound,
		From:           account.DefaultFromAddress,
		To:             req.To,
		DeliveryStatus: &status,
	}
	if messageID != "" {
		// Provider status callbacks reference this id.
		createParams.ProviderEmailID = &messageID
		createParams.ProviderMessageID = &messageID
	}
	if req.CC != "" {
		createParams.CC = &req.CC
	}
	if req.BCC != "" {
		createParams.BCC = &req.BCC
	}
	if req.Subject != "" {
		createParams.Subject = &req.Subject
	}
	if req.HTML != "" {
		createParams.HTML = &req.HTML
	}
	if req.Text != "" {
		createParams.Text = &req.Text
	}

	email, err := h.emails.CreateEmail(r.Context(), createParams)
	if err != nil {
		// The provider accepted the message. Surface the storage failure
		// but do not pretend the send did not happen.
		h.log.ErrorContext(r.Context(), "failed to store sent email",
			slog.String("provider_message_id", messageID),
			slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "email sent but could not be recorded")
		return
	}

	respondData(w, http.StatusCreated, viewEmail(email))
}
