package store

import (
	"context"
	"errors"
	"time"

	"github.com/letterboxhq/letterbox/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
// Implementations map their driver-specific "no rows" errors to it.
var ErrNotFound = errors.New("store: not found")

type CreateAccountParams struct {
	Name                  string
	Domain                string
	ProviderAPIKey        string
	DefaultFromAddress    string
	DefaultFromName       string
	DefaultReplyToAddress *string
	DefaultReplyToName    *string
}

type CreateUserParams struct {
	AccountID    *int64
	Email        string
	Name         string
	PasswordHash string
	Role         models.Role
}

type CreateEmailParams struct {
	AccountID         int64
	UserID            *int64
	Direction         models.Direction
	ProviderEmailID   *string
	ProviderMessageID *string
	From              string
	To                string
	CC                *string
	BCC               *string
	Subject           *string
	HTML              *string
	Text              *string
	Attachments       []models.Attachment
	DeliveryStatus    *models.DeliveryStatus
	EmailCreatedAt    *time.Time
}

// EmailScope bounds a recent-emails query to what the caller may see.
// Nil fields mean "no restriction" on that dimension.
type EmailScope struct {
	AccountID *int64
	UserID    *int64
}

type AccountStore interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (*models.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByDomain(ctx context.Context, domain string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	SetAccountActive(ctx context.Context, id int64, active bool) error
}

type UserStore interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindMailboxUser resolves the owner of an inbound address by its
	// local part (the portion before "@") within an account.
	FindMailboxUser(ctx context.Context, accountID int64, localPart string) (*models.User, error)
	ListUsersByAccount(ctx context.Context, accountID int64) ([]models.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
}

type EmailStore interface {
	CreateEmail(ctx context.Context, params CreateEmailParams) (*models.Email, error)
	GetEmailByProviderID(ctx context.Context, providerEmailID string) (*models.Email, error)
	// UpdateDeliveryStatus persists the delivery-status fields of an
	// already-loaded email record.
	UpdateDeliveryStatus(ctx context.Context, email *models.Email) error
	ListRecentEmails(ctx context.Context, scope EmailScope, limit int) ([]models.Email, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) (*models.Session, error)
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) error
}
