package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/letterboxhq/letterbox/internal/mailer"
	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
)

// --- Shared mock stores used across the handler tests ---

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func duplicateKeyErr() error {
	return &pgconn.PgError{Code: "23505"}
}

type mockAccountStore struct {
	accounts map[int64]*models.Account
	nextID   int64
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[int64]*models.Account), nextID: 1}
}

func (m *mockAccountStore) addAccount(a *models.Account) {
	m.accounts[a.ID] = a
	if a.ID >= m.nextID {
		m.nextID = a.ID + 1
	}
}

func (m *mockAccountStore) CreateAccount(_ context.Context, params store.CreateAccountParams) (*models.Account, error) {
	for _, a := range m.accounts {
		if a.Domain == params.Domain {
			return nil, duplicateKeyErr()
		}
	}
	a := &models.Account{
		ID:                    m.nextID,
		Name:                  params.Name,
		Domain:                params.Domain,
		ProviderAPIKey:        params.ProviderAPIKey,
		DefaultFromAddress:    params.DefaultFromAddress,
		DefaultFromName:       params.DefaultFromName,
		DefaultReplyToAddress: params.DefaultReplyToAddress,
		DefaultReplyToName:    params.DefaultReplyToName,
		IsActive:              true,
		CreatedAt:             time.Now(),
	}
	m.nextID++
	m.accounts[a.ID] = a
	return a, nil
}

func (m *mockAccountStore) GetAccountByID(_ context.Context, id int64) (*models.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (m *mockAccountStore) GetAccountByDomain(_ context.Context, domain string) (*models.Account, error) {
	for _, a := range m.accounts {
		if a.Domain == domain {
			return a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockAccountStore) ListAccounts(_ context.Context) ([]models.Account, error) {
	accounts := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, *a)
	}
	return accounts, nil
}

func (m *mockAccountStore) SetAccountActive(_ context.Context, id int64, active bool) error {
	a, ok := m.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	a.IsActive = active
	return nil
}

type mockUserStore struct {
	users  map[int64]*models.User
	nextID int64
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[int64]*models.User), nextID: 1}
}

func (m *mockUserStore) addUser(u *models.User) {
	m.users[u.ID] = u
	if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
}

func (m *mockUserStore) CreateUser(_ context.Context, params store.CreateUserParams) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == params.Email {
			return nil, duplicateKeyErr()
		}
	}
	u := &models.User{
		ID:           m.nextID,
		AccountID:    params.AccountID,
		Email:        params.Email,
		Name:         params.Name,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) FindMailboxUser(_ context.Context, accountID int64, localPart string) (*models.User, error) {
	for _, u := range m.users {
		if u.AccountID == nil || *u.AccountID != accountID {
			continue
		}
		if local, _, ok := strings.Cut(u.Email, "@"); ok && local == localPart {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) ListUsersByAccount(_ context.Context, accountID int64) ([]models.User, error) {
	var users []models.User
	for _, u := range m.users {
		if u.AccountID != nil && *u.AccountID == accountID {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *mockUserStore) SetUserActive(_ context.Context, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = active
	return nil
}

type mockEmailStore struct {
	emails    map[int64]*models.Email
	nextID    int64
	lastScope *store.EmailScope
	lastLimit int
}

func newMockEmailStore() *mockEmailStore {
	return &mockEmailStore{emails: make(map[int64]*models.Email), nextID: 1}
}

func (m *mockEmailStore) CreateEmail(_ context.Context, params store.CreateEmailParams) (*models.Email, error) {
	e := &models.Email{
		ID:                m.nextID,
		AccountID:         params.AccountID,
		UserID:            params.UserID,
		Direction:         params.Direction,
		ProviderEmailID:   params.ProviderEmailID,
		ProviderMessageID: params.ProviderMessageID,
		From:              params.From,
		To:                params.To,
		CC:                params.CC,
		BCC:               params.BCC,
		Subject:           params.Subject,
		HTML:              params.HTML,
		Text:              params.Text,
		Attachments:       params.Attachments,
		DeliveryStatus:    params.DeliveryStatus,
		EmailCreatedAt:    params.EmailCreatedAt,
		CreatedAt:         time.Now(),
	}
	m.nextID++
	m.emails[e.ID] = e
	return e, nil
}

func (m *mockEmailStore) GetEmailByProviderID(_ context.Context, providerEmailID string) (*models.Email, error) {
	for _, e := range m.emails {
		if e.ProviderEmailID != nil && *e.ProviderEmailID == providerEmailID {
			return e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockEmailStore) UpdateDeliveryStatus(_ context.Context, email *models.Email) error {
	if _, ok := m.emails[email.ID]; !ok {
		return store.ErrNotFound
	}
	m.emails[email.ID] = email
	return nil
}

func (m *mockEmailStore) ListRecentEmails(_ context.Context, scope store.EmailScope, limit int) ([]models.Email, error) {
	m.lastScope = &scope
	m.lastLimit = limit
	var emails []models.Email
	for _, e := range m.emails {
		if scope.AccountID != nil && e.AccountID != *scope.AccountID {
			continue
		}
		// Matches the SQL filter: user scope excludes account-level
		// rows with no mailbox owner.
		if scope.UserID != nil && (e.UserID == nil || *e.UserID != *scope.UserID) {
			continue
		}
		emails = append(emails, *e)
	}
	return emails, nil
}

type mockSessionStore struct {
	sessions map[string]*models.Session
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*models.Session)}
}

func (m *mockSessionStore) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) (*models.Session, error) {
	s := &models.Session{Token: token, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.sessions[token] = s
	return s, nil
}

func (m *mockSessionStore) GetSessionByToken(_ context.Context, token string) (*models.Session, error) {
	s, ok := m.sessions[token]
	if !ok || s.ExpiresAt.Before(time.Now()) {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (m *mockSessionStore) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *mockSessionStore) DeleteExpiredSessions(_ context.Context) error { return nil }

// mockSender records sends without calling a provider.
type mockSender struct {
	messageID string
	err       error

	account *models.Account
	params  *mailer.SendParams
}

func (m *mockSender) Send(_ context.Context, account *models.Account, params mailer.SendParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	m.account = account
	m.params = &params
	if m.err != nil {
		return "", m.err
	}
	return m.messageID, nil
}
