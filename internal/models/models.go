package models

import "time"

// Role determines what a user can see and do. Sysadmins operate across
// accounts and therefore carry no account id.
type Role string

const (
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleSysadmin Role = "sysadmin"
)

// Direction distinguishes mail sent through the provider from mail the
// provider delivered to one of our domains.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// DeliveryStatus tracks the provider-reported fate of an outbound email.
// Inbound emails carry no delivery status.
type DeliveryStatus string

const (
	StatusSent            DeliveryStatus = "sent"
	StatusDelivered       DeliveryStatus = "delivered"
	StatusBounced         DeliveryStatus = "bounced"
	StatusFailed          DeliveryStatus = "failed"
	StatusDeliveryDelayed DeliveryStatus = "delivery_delayed"
)

// BounceType classifies a bounce reported by the provider.
type BounceType string

const (
	BounceHard      BounceType = "hard"
	BounceSoft      BounceType = "soft"
	BounceTransient BounceType = "transient"
)

// Account is a tenant: an organization with its own mail domain and
// provider credential. Accounts are deactivated, never hard-deleted.
type Account struct {
	ID                    int64
	Name                  string
	Domain                string
	ProviderAPIKey        string
	DefaultFromAddress    string
	DefaultFromName       string
	DefaultReplyToAddress *string
	DefaultReplyToName    *string
	IsActive              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// User is a principal within an account. AccountID is nil iff the user
// is a sysadmin.
type User struct {
	ID           int64
	AccountID    *int64
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Attachment describes a file attached to an email as reported by the
// provider webhook. Content bodies are not stored.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Email is a message owned by an account, optionally tied to the user
// whose mailbox it belongs to. Created on send or on receipt; mutated
// only by delivery-status updates.
type Email struct {
	ID                int64
	AccountID         int64
	UserID            *int64
	Direction         Direction
	ProviderEmailID   *string
	ProviderMessageID *string
	From              string
	To                string
	CC                *string
	BCC               *string
	Subject           *string
	HTML              *string
	Text              *string
	Attachments       []Attachment
	DeliveryStatus    *DeliveryStatus
	BounceReason      *string
	BounceType        *BounceType
	DeliveredAt       *time.Time
	BouncedAt         *time.Time
	FailedAt          *time.Time
	EmailCreatedAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Session is an authenticated browser session backed by an opaque token.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
