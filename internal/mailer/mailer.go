package mailer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/letterboxhq/letterbox/internal/models"
)

// Sender dispatches outbound email through the account's provider
// credential and returns the provider's message id for the submission.
type Sender interface {
	Send(ctx context.Context, account *models.Account, params SendParams) (messageID string, err error)
}

// SendParams carries a single outbound message. The from address comes
// from the sending account's defaults, not from the caller.
type SendParams struct {
	To       string
	CC       string
	BCC      string
	Subject  string
	HTMLBody string
	TextBody string
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the params before they reach the provider.
func (p SendParams) Validate() error {
	if p.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidParams)
	}
	if !emailRegex.MatchString(p.To) {
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidParams)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.HTMLBody == "" && p.TextBody == "" {
		return fmt.Errorf("%w: html or text body is required", ErrInvalidParams)
	}
	return nil
}

// fromAddress renders the account's configured sender identity.
func fromAddress(account *models.Account) string {
	if account.DefaultFromName != "" {
		return fmt.Sprintf("%s <%s>", account.DefaultFromName, account.DefaultFromAddress)
	}
	return account.DefaultFromAddress
}

func replyToAddress(account *models.Account) string {
	if account.DefaultReplyToAddress == nil {
		return ""
	}
	if account.DefaultReplyToName != nil && *account.DefaultReplyToName != "" {
		return fmt.Sprintf("%s <%s>", *account.DefaultReplyToName, *account.DefaultReplyToAddress)
	}
	return *account.DefaultReplyToAddress
}
