package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/relay"
	"github.com/letterboxhq/letterbox/internal/store"
)

var (
	// ErrUnknownDomain means no active account claims the recipient domain.
	ErrUnknownDomain = errors.New("webhook: no account for recipient domain")
	// ErrMalformedPayload means the callback lacks fields required to route it.
	ErrMalformedPayload = errors.New("webhook: malformed payload")
)

// Store is the persistence surface the webhook handler needs.
type Store interface {
	GetAccountByDomain(ctx context.Context, domain string) (*models.Account, error)
	FindMailboxUser(ctx context.Context, accountID int64, localPart string) (*models.User, error)
	CreateEmail(ctx context.Context, params store.CreateEmailParams) (*models.Email, error)
	GetEmailByProviderID(ctx context.Context, providerEmailID string) (*models.Email, error)
	UpdateDeliveryStatus(ctx context.Context, email *models.Email) error
}

// ContentFetcher retrieves the html/text body of an inbound email from
// the provider, which omits content from its callbacks.
type ContentFetcher interface {
	FetchContent(ctx context.Context, account *models.Account, providerEmailID string) (html, text string, err error)
}

// Handler processes provider callbacks: it stores inbound email and
// advances the delivery-status machine for outbound email, publishing a
// relay event for each change.
type Handler struct {
	store   Store
	relay   relay.Publisher
	fetcher ContentFetcher
	log     *slog.Logger
	now     func() time.Time
}

// NewHandler creates a webhook handler. fetcher may be nil, in which
// case inbound emails are stored without body content.
func NewHandler(st Store, rel relay.Publisher, fetcher ContentFetcher, log *slog.Logger) *Handler {
	return &Handler{
		store:   st,
		relay:   rel,
		fetcher: fetcher,
		log:     log,
		now:     time.Now,
	}
}

// Handle dispatches a callback by type. Unrecognized types are logged
// and acknowledged so the provider does not retry them.
func (h *Handler) Handle(ctx context.Context, p Payload) error {
	switch p.Type {
	case TypeEmailReceived:
		return h.handleReceived(ctx, p)
	case TypeEmailDelivered, TypeEmailBounced, TypeEmailFailed, TypeEmailDeliveryDelayed:
		return h.handleStatus(ctx, p)
	default:
		h.log.InfoContext(ctx, "ignoring unhandled webhook type", slog.String("type", p.Type))
		return nil
	}
}

func (h *Handler) handleReceived(ctx context.Context, p Payload) error {
	if p.Data.EmailID == "" || len(p.Data.To) == 0 {
		return ErrMalformedPayload
	}

	localPart, domain, ok := strings.Cut(p.Data.To[0], "@")
	if !ok {
		return fmt.Errorf("%w: recipient %q has no domain", ErrMalformedPayload, p.Data.To[0])
	}

	account, err := h.store.GetAccountByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
		}
		return fmt.Errorf("webhook: look up account for %s: %w", domain, err)
	}

	var userID *int64
	user, err := h.store.FindMailboxUser(ctx, account.ID, localPart)
	switch {
	case err == nil:
		userID = &user.ID
	case errors.Is(err, store.ErrNotFound):
		// Unclaimed mailbox. Keep the email at account level.
	default:
		return fmt.Errorf("webhook: look up mailbox %s: %w", localPart, err)
	}

	var html, text *string
	if h.fetcher != nil {
		bodyHTML, bodyText, err := h.fetcher.FetchContent(ctx, account, p.Data.EmailID)
		if err != nil {
			h.log.WarnContext(ctx, "failed to fetch inbound email content",
				slog.String("provider_email_id", p.Data.EmailID),
				slog.Any("error", err))
		} else {
			if bodyHTML != "" {
				html = &bodyHTML
			}
			if bodyText != "" {
				text = &bodyText
			}
		}
	}

	params := store.CreateEmailParams{
		AccountID:       account.ID,
		UserID:          userID,
		Direction:       models.DirectionInbound,
		ProviderEmailID: &p.Data.EmailID,
		From:            p.Data.From,
		To:              strings.Join(p.Data.To, ", "),
		Subject:         optional(p.Data.Subject),
		HTML:            html,
		Text:            text,
		Attachments:     p.Data.Attachments,
	}
	if p.Data.MessageID != "" {
		params.ProviderMessageID = &p.Data.MessageID
	}
	if len(p.Data.CC) > 0 {
		cc := strings.Join(p.Data.CC, ", ")
		params.CC = &cc
	}
	if len(p.Data.BCC) > 0 {
		bcc := strings.Join(p.Data.BCC, ", ")
		params.BCC = &bcc
	}
	if p.Data.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, p.Data.CreatedAt); err == nil {
			params.EmailCreatedAt = &ts
		}
	}

	email, err := h.store.CreateEmail(ctx, params)
	if err != nil {
		return fmt.Errorf("webhook: store inbound email: %w", err)
	}

	h.log.InfoContext(ctx, "inbound email stored",
		slog.Int64("email_id", email.ID),
		slog.Int64("account_id", account.ID),
		slog.String("mailbox", localPart))

	ev, err := relay.NewEmailReceived(email)
	if err != nil {
		h.log.ErrorContext(ctx, "failed to build email received event", slog.Any("error", err))
		return nil
	}
	if err := h.relay.Publish(ctx, ev); err != nil {
		h.log.ErrorContext(ctx, "failed to publish email received event", slog.Any("error", err))
	}
	return nil
}

func (h *Handler) handleStatus(ctx context.Context, p Payload) error {
	if p.Data.EmailID == "" {
		return ErrMalformedPayload
	}
	to := statusFor(p.Type)

	email, err := h.store.GetEmailByProviderID(ctx, p.Data.EmailID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.log.InfoContext(ctx, "status callback for unknown email",
				slog.String("provider_email_id", p.Data.EmailID),
				slog.String("type", p.Type))
			return nil
		}
		return fmt.Errorf("webhook: look up email %s: %w", p.Data.EmailID, err)
	}

	if email.DeliveryStatus != nil && !transitionAllowed(*email.DeliveryStatus, to) {
		// Providers retry and reorder callbacks. Trust the latest one
		// they sent rather than freezing on a stale terminal state.
		h.log.WarnContext(ctx, "out-of-order delivery status transition",
			slog.Int64("email_id", email.ID),
			slog.String("from", string(*email.DeliveryStatus)),
			slog.String("to", string(to)))
	}

	now := h.now()
	email.DeliveryStatus = &to
	switch to {
	case models.StatusDelivered:
		email.DeliveredAt = &now
	case models.StatusBounced:
		email.BouncedAt = &now
		if p.Data.Bounce != nil {
			email.BounceReason = optional(p.Data.Bounce.Message)
			email.BounceType = parseBounceType(p.Data.Bounce.Type)
		}
	case models.StatusFailed:
		email.FailedAt = &now
		if p.Data.Bounce != nil {
			email.BounceReason = optional(p.Data.Bounce.Message)
		}
	}

	if err := h.store.UpdateDeliveryStatus(ctx, email); err != nil {
		return fmt.Errorf("webhook: update delivery status: %w", err)
	}

	h.log.InfoContext(ctx, "delivery status updated",
		slog.Int64("email_id", email.ID),
		slog.String("status", string(to)))

	ev, err := relay.NewStatusUpdated(email)
	if err != nil {
		h.log.ErrorContext(ctx, "failed to build status updated event", slog.Any("error", err))
		return nil
	}
	if err := h.relay.Publish(ctx, ev); err != nil {
		h.log.ErrorContext(ctx, "failed to publish status updated event", slog.Any("error", err))
	}
	return nil
}

func statusFor(callbackType string) models.DeliveryStatus {
	switch callbackType {
	case TypeEmailDelivered:
		return models.StatusDelivered
	case TypeEmailBounced:
		return models.StatusBounced
	case TypeEmailFailed:
		return models.StatusFailed
	default:
		return models.StatusDeliveryDelayed
	}
}

// transitionAllowed reports whether moving from one delivery status to
// another follows the expected lifecycle: sent may move anywhere,
// delivery_delayed may resolve to a terminal state, and terminal states
// do not move.
func transitionAllowed(from, to models.DeliveryStatus) bool {
	switch from {
	case models.StatusSent:
		return to == models.StatusDelivered ||
			to == models.StatusBounced ||
			to == models.StatusFailed ||
			to == models.StatusDeliveryDelayed
	case models.StatusDeliveryDelayed:
		return to == models.StatusDelivered ||
			to == models.StatusBounced ||
			to == models.StatusFailed
	default:
		return false
	}
}

func parseBounceType(s string) *models.BounceType {
	switch bt := models.BounceType(s); bt {
	case models.BounceHard, models.BounceSoft, models.BounceTransient:
		return &bt
	default:
		return nil
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
