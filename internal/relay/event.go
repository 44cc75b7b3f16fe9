package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/letterboxhq/letterbox/internal/models"
)

// Event types pushed to streaming clients.
const (
	TypeEmailReceived = "email:received"
	TypeStatusUpdated = "email:status_updated"
)

// Event is an immutable domain event raised by the webhook handler and
// consumed by the relay. AccountID and UserID identify who may see it;
// Data is the already-formatted client payload. Events are never
// persisted and carry enough identity to be applied independently, so no
// cross-instance ordering is required.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	AccountID int64           `json:"account_id"`
	UserID    *int64          `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Frame renders the wire form pushed to clients.
func (e Event) Frame() ([]byte, error) {
	return json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: e.Type, Data: e.Data})
}

// receivedPayload mirrors the message shape the web clients consume.
type receivedPayload struct {
	ID          int64               `json:"id"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Subject     *string             `json:"subject"`
	HTML        *string             `json:"html"`
	Text        *string             `json:"text"`
	EmailID     *string             `json:"email_id"`
	MessageID   *string             `json:"message_id"`
	CreatedAt   *string             `json:"created_at"`
	Attachments []models.Attachment `json:"attachments"`
	CC          []string            `json:"cc"`
	BCC         []string            `json:"bcc"`
	AccountID   int64               `json:"accountId"`
	UserID      *int64              `json:"userId"`
	Direction   models.Direction    `json:"direction"`
}

type statusPayload struct {
	ID             int64                  `json:"id"`
	EmailID        *string                `json:"emailId"`
	DeliveryStatus *models.DeliveryStatus `json:"deliveryStatus"`
	BounceReason   *string                `json:"bounceReason"`
	BounceType     *models.BounceType     `json:"bounceType"`
}

// NewEmailReceived builds the event raised when an inbound email has
// been persisted.
func NewEmailReceived(email *models.Email) (Event, error) {
	payload := receivedPayload{
		ID:          email.ID,
		From:        email.From,
		To:          email.To,
		Subject:     email.Subject,
		HTML:        email.HTML,
		Text:        email.Text,
		EmailID:     email.ProviderEmailID,
		MessageID:   email.ProviderMessageID,
		Attachments: email.Attachments,
		CC:          splitAddresses(email.CC),
		BCC:         splitAddresses(email.BCC),
		AccountID:   email.AccountID,
		UserID:      email.UserID,
		Direction:   email.Direction,
	}
	if email.EmailCreatedAt != nil {
		ts := email.EmailCreatedAt.Format(time.RFC3339)
		payload.CreatedAt = &ts
	}
	if payload.Attachments == nil {
		payload.Attachments = []models.Attachment{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode email:received payload: %w", err)
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      TypeEmailReceived,
		AccountID: email.AccountID,
		UserID:    email.UserID,
		Data:      data,
	}, nil
}

// NewStatusUpdated builds the event raised after a delivery-status
// transition has been persisted.
func NewStatusUpdated(email *models.Email) (Event, error) {
	data, err := json.Marshal(statusPayload{
		ID:             email.ID,
		EmailID:        email.ProviderEmailID,
		DeliveryStatus: email.DeliveryStatus,
		BounceReason:   email.BounceReason,
		BounceType:     email.BounceType,
	})
	if err != nil {
		return Event{}, fmt.Errorf("encode email:status_updated payload: %w", err)
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      TypeStatusUpdated,
		AccountID: email.AccountID,
		UserID:    email.UserID,
		Data:      data,
	}, nil
}

func splitAddresses(joined *string) []string {
	if joined == nil || *joined == "" {
		return []string{}
	}
	return strings.Split(*joined, ", ")
}
