package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
)

func sendRequest(identity *auth.Identity, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/emails/send", strings.NewReader(body))
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *identity))
	}
	return req
}

func TestMailHandler_Send(t *testing.T) {
	t.Parallel()

	accountID := int64(1)
	identity := auth.Identity{UserID: 10, AccountID: &accountID, Role: models.RoleUser}
	validBody := `{"to":"customer@example.com","subject":"Hello","html":"<p>hi</p>"}`

	setup := func() (*MailHandler, *mockAccountStore, *mockEmailStore, *mockSender) {
		accounts := newMockAccountStore()
		accounts.addAccount(&models.Account{
			ID:                 1,
			Name:               "Acme",
			Domain:             "acme.test",
			ProviderAPIKey:     "token",
			DefaultFromAddress: "noreply@acme.test",
			IsActive:           true,
		})
		emails := newMockEmailStore()
		sender := &mockSender{messageID: "prov-msg-1"}
		return NewMailHandler(accounts, emails, sender, discardLogger()), accounts, emails, sender
	}

	t.Run("sends and records the email as sent", func(t *testing.T) {
		t.Parallel()

		h, _, emails, sender := setup()
		rec := httptest.NewRecorder()
		h.HandleSend(rec, sendRequest(&identity, validBody))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, sender.params)
		assert.Equal(t, "customer@example.com", sender.params.To)
		require.NotNil(t, sender.account)
		assert.Equal(t, "acme.test", sender.account.Domain)

		require.Len(t, emails.emails, 1)
		stored := emails.emails[1]
		assert.Equal(t, models.DirectionOutbound, stored.Direction)
		require.NotNil(t, stored.DeliveryStatus)
		assert.Equal(t, models.StatusSent, *stored.DeliveryStatus)
		require.NotNil(t, stored.ProviderEmailID)
		assert.Equal(t, "prov-msg-1", *stored.ProviderEmailID)
		require.NotNil(t, stored.UserID)
		assert.Equal(t, int64(10), *stored.UserID)
	})

	t.Run("rejects invalid params", func(t *testing.T) {
		t.Parallel()

		h, _, emails, _ := setup()
		rec := httptest.NewRecorder()
		h.HandleSend(rec, sendRequest(&identity, `{"to":"customer@example.com"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Empty(t, emails.emails)
	})

	t.Run("rejects deactivated accounts", func(t *testing.T) {
		t.Parallel()

		h, accounts, _, _ := setup()
		accounts.accounts[1].IsActive = false

		rec := httptest.NewRecorder()
		h.HandleSend(rec, sendRequest(&identity, validBody))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects callers without an account", func(t *testing.T) {
		t.Parallel()

		h, _, _, _ := setup()
		sysadmin := auth.Identity{UserID: 99, Role: models.RoleSysadmin}

		rec := httptest.NewRecorder()
		h.HandleSend(rec, sendRequest(&sysadmin, validBody))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestMailboxHandler_RecentEmails(t *testing.T) {
	t.Parallel()

	accountID := int64(1)
	userID := int64(10)
	identity := auth.Identity{UserID: userID, AccountID: &accountID, Role: models.RoleUser}

	t.Run("scopes the query to the caller", func(t *testing.T) {
		t.Parallel()

		emails := newMockEmailStore()
		h := NewMailboxHandler(emails, discardLogger())

		req := httptest.NewRequest(http.MethodGet, "/emails/recent?limit=5", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
		rec := httptest.NewRecorder()
		h.HandleRecentEmails(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, emails.lastScope)
		require.NotNil(t, emails.lastScope.AccountID)
		assert.Equal(t, accountID, *emails.lastScope.AccountID)
		require.NotNil(t, emails.lastScope.UserID)
		assert.Equal(t, userID, *emails.lastScope.UserID)
		assert.Equal(t, 5, emails.lastLimit)
	})

	t.Run("users see only their own mailbox", func(t *testing.T) {
		t.Parallel()

		emails := newMockEmailStore()
		otherUser := int64(11)
		seed := func(owner *int64) {
			_, err := emails.CreateEmail(context.Background(), store.CreateEmailParams{
				AccountID: accountID,
				UserID:    owner,
				Direction: models.DirectionInbound,
				From:      "customer@example.com",
				To:        "sales@acme.test",
			})
			require.NoError(t, err)
		}
		seed(&userID)
		seed(&otherUser)
		seed(nil) // account-level, no mailbox owner

		h := NewMailboxHandler(emails, discardLogger())

		req := httptest.NewRequest(http.MethodGet, "/emails/recent", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
		rec := httptest.NewRecorder()
		h.HandleRecentEmails(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data []struct {
				UserID *int64 `json:"userId"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data, 1, "unowned and account-level mail is excluded")
		require.NotNil(t, body.Data[0].UserID)
		assert.Equal(t, userID, *body.Data[0].UserID)
	})

	t.Run("caps the limit", func(t *testing.T) {
		t.Parallel()

		emails := newMockEmailStore()
		h := NewMailboxHandler(emails, discardLogger())

		req := httptest.NewRequest(http.MethodGet, "/emails/recent?limit=100000", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
		rec := httptest.NewRecorder()
		h.HandleRecentEmails(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, maxRecentLimit, emails.lastLimit)
	})

	t.Run("rejects a non-numeric limit", func(t *testing.T) {
		t.Parallel()

		h := NewMailboxHandler(newMockEmailStore(), discardLogger())

		req := httptest.NewRequest(http.MethodGet, "/emails/recent?limit=abc", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
		rec := httptest.NewRecorder()
		h.HandleRecentEmails(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
