package webhook

import (
	"time"

	"github.com/letterboxhq/letterbox/internal/models"
)

// Provider callback types.
const (
	TypeEmailReceived        = "email.received"
	TypeEmailDelivered       = "email.delivered"
	TypeEmailBounced         = "email.bounced"
	TypeEmailFailed          = "email.failed"
	TypeEmailDeliveryDelayed = "email.delivery_delayed"
)

// Payload is a provider callback reporting an inbound email or a
// delivery-status change for an email we sent.
type Payload struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      Data      `json:"data"`
}

// Data is the callback body. The provider never includes html/text
// content for inbound mail; that is fetched separately.
type Data struct {
	EmailID     string              `json:"email_id"`
	MessageID   string              `json:"message_id"`
	CreatedAt   string              `json:"created_at"`
	From        string              `json:"from"`
	To          []string            `json:"to"`
	CC          []string            `json:"cc"`
	BCC         []string            `json:"bcc"`
	Subject     string              `json:"subject"`
	Attachments []models.Attachment `json:"attachments"`
	Bounce      *Bounce             `json:"bounce,omitempty"`
}

// Bounce carries the provider's bounce classification and free-text
// reason. It accompanies email.bounced and, for some providers,
// email.failed callbacks.
type Bounce struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
