package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mrz1836/postmark"

	"github.com/letterboxhq/letterbox/internal/models"
)

// PostmarkSender sends through Postmark using each account's own server
// token. Clients are cached per token since every request to a tenant's
// server reuses the same credential.
type PostmarkSender struct {
	mu      sync.Mutex
	clients map[string]*postmark.Client
}

// NewPostmarkSender creates a Postmark-backed sender.
func NewPostmarkSender() *PostmarkSender {
	return &PostmarkSender{clients: make(map[string]*postmark.Client)}
}

func (s *PostmarkSender) clientFor(token string) *postmark.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[token]
	if !ok {
		client = postmark.NewClient(token, "")
		s.clients[token] = client
	}
	return client
}

// Send submits the email under the account's credential and returns the
// provider message id.
func (s *PostmarkSender) Send(ctx context.Context, account *models.Account, params SendParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if account.ProviderAPIKey == "" {
		return "", fmt.Errorf("%w: account %d", ErrNoCredential, account.ID)
	}

	resp, err := s.clientFor(account.ProviderAPIKey).SendEmail(ctx, postmark.Email{
		From:     fromAddress(account),
		ReplyTo:  replyToAddress(account),
		To:       params.To,
		Cc:       params.CC,
		Bcc:      params.BCC,
		Subject:  params.Subject,
		HTMLBody: params.HTMLBody,
		TextBody: params.TextBody,
	})
	if err != nil {
		return "", errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return "", errors.Join(
			ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return resp.MessageID, nil
}
