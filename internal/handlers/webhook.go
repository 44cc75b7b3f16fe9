package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/letterboxhq/letterbox/internal/webhook"
)

const webhookMaxBodyBytes int64 = 1024 * 1024

// WebhookHandler receives provider callbacks and hands them to the
// webhook processor. Callbacks are authenticated by a shared secret,
// not by a user session.
type WebhookHandler struct {
	hook   *webhook.Handler
	secret string
	log    *slog.Logger
}

func NewWebhookHandler(hook *webhook.Handler, secret string, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		hook:   hook,
		secret: strings.TrimSpace(secret),
		log:    log,
	}
}

func (h *WebhookHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		respondError(w, http.StatusServiceUnavailable, "webhook endpoint is not configured")
		return
	}
	if !validBearerToken(r.Header.Get("Authorization"), h.secret) {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookMaxBodyBytes)
	var payload webhook.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if err := h.hook.Handle(r.Context(), payload); err != nil {
		switch {
		case errors.Is(err, webhook.ErrMalformedPayload):
			respondError(w, http.StatusBadRequest, "malformed payload")
		case errors.Is(err, webhook.ErrUnknownDomain):
			respondError(w, http.StatusNotFound, "no account for recipient domain")
		default:
			// A 5xx tells the provider to retry the callback later.
			h.log.ErrorContext(r.Context(), "webhook processing failed",
				slog.String("type", payload.Type),
				slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respondMessage(w, http.StatusOK, "processed")
}

func validBearerToken(headerValue, expected string) bool {
	headerValue = strings.TrimSpace(headerValue)
	const prefix = "Bearer "
	if !strings.HasPrefix(headerValue, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, prefix))
	return token != "" && token == expected
}
