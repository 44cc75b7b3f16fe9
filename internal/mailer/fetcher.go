package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/letterboxhq/letterbox/internal/models"
)

// FetchContent pulls the html/text body of an inbound message from
// Postmark. Inbound webhook callbacks omit content, so it is retrieved
// with the receiving account's credential.
func (s *PostmarkSender) FetchContent(ctx context.Context, account *models.Account, providerEmailID string) (string, string, error) {
	if account.ProviderAPIKey == "" {
		return "", "", fmt.Errorf("%w: account %d", ErrNoCredential, account.ID)
	}

	msg, err := s.clientFor(account.ProviderAPIKey).GetInboundMessage(ctx, providerEmailID)
	if err != nil {
		return "", "", errors.Join(ErrSendFailed, err)
	}
	return msg.HTMLBody, msg.TextBody, nil
}
