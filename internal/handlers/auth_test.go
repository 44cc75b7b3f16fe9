package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/models"
)

func seedUser(t *testing.T, users *mockUserStore, email, password string, accountID *int64, role models.Role) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	u := &models.User{
		ID:           int64(len(users.users) + 1),
		AccountID:    accountID,
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	users.addUser(u)
	return u
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	newHandler := func(t *testing.T) (*AuthHandler, *mockUserStore) {
		users := newMockUserStore()
		svc := auth.NewService(users, newMockSessionStore(), time.Hour)
		return NewAuthHandler(svc, newMockAccountStore(), users, time.Hour, false, discardLogger()), users
	}

	t.Run("valid credentials set a session cookie", func(t *testing.T) {
		t.Parallel()

		h, users := newHandler(t)
		accountID := int64(1)
		seedUser(t, users, "admin@acme.test", "correct horse", &accountID, models.RoleAdmin)

		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"admin@acme.test","password":"correct horse"}`))
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == auth.SessionCookie {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Email string `json:"email"`
				Role  string `json:"role"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "admin@acme.test", resp.Data.Email)
		assert.Equal(t, "admin", resp.Data.Role)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		t.Parallel()

		h, users := newHandler(t)
		seedUser(t, users, "user@acme.test", "right", nil, models.RoleSysadmin)

		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"user@acme.test","password":"wrong"}`))
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		t.Parallel()

		h, _ := newHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"x@y.z"}`))
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	newHandler := func(t *testing.T) (*AuthHandler, *mockAccountStore, *mockUserStore) {
		accounts := newMockAccountStore()
		users := newMockUserStore()
		svc := auth.NewService(users, newMockSessionStore(), time.Hour)
		return NewAuthHandler(svc, accounts, users, time.Hour, false, discardLogger()), accounts, users
	}

	signupBody := `{
		"name": "Acme",
		"domain": "Acme.Test",
		"providerApiKey": "pm-key",
		"defaultFromAddress": "noreply@acme.test",
		"defaultFromName": "Acme",
		"adminEmail": "founder@acme.test",
		"adminName": "Founder",
		"adminPassword": "correct horse"
	}`

	t.Run("signup provisions an account and logs the admin in", func(t *testing.T) {
		t.Parallel()

		h, accounts, users := newHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(signupBody))
		rec := httptest.NewRecorder()
		h.HandleRegister(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == auth.SessionCookie {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Account struct {
					Domain string `json:"domain"`
				} `json:"account"`
				User struct {
					Email string `json:"email"`
					Role  string `json:"role"`
				} `json:"user"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "acme.test", resp.Data.Account.Domain)
		assert.Equal(t, "founder@acme.test", resp.Data.User.Email)
		assert.Equal(t, "admin", resp.Data.User.Role)

		account, err := accounts.GetAccountByDomain(t.Context(), "acme.test")
		require.NoError(t, err)

		admin, err := users.GetUserByEmail(t.Context(), "founder@acme.test")
		require.NoError(t, err)
		require.NotNil(t, admin.AccountID)
		assert.Equal(t, account.ID, *admin.AccountID)
		assert.Equal(t, models.RoleAdmin, admin.Role)
		assert.NoError(t, auth.CheckPassword(admin.PasswordHash, "correct horse"))
		assert.NotContains(t, rec.Body.String(), admin.PasswordHash)
	})

	t.Run("taken domain is rejected", func(t *testing.T) {
		t.Parallel()

		h, accounts, users := newHandler(t)
		accounts.addAccount(&models.Account{ID: 1, Domain: "acme.test"})

		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(signupBody))
		rec := httptest.NewRecorder()
		h.HandleRegister(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "domain is already registered")

		_, err := users.GetUserByEmail(t.Context(), "founder@acme.test")
		assert.Error(t, err)
	})

	t.Run("missing admin credentials are rejected", func(t *testing.T) {
		t.Parallel()

		h, accounts, _ := newHandler(t)

		body := `{"name":"Acme","domain":"acme.test","providerApiKey":"pm-key","defaultFromAddress":"noreply@acme.test"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.HandleRegister(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, accounts.accounts)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Parallel()

	users := newMockUserStore()
	sessions := newMockSessionStore()
	svc := auth.NewService(users, sessions, time.Hour)
	h := NewAuthHandler(svc, newMockAccountStore(), users, time.Hour, false, discardLogger())

	accountID := int64(1)
	user := seedUser(t, users, "admin@acme.test", "pw-123456", &accountID, models.RoleAdmin)
	_, err := sessions.CreateSession(t.Context(), "tok-1", user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "tok-1"})
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sessions.sessions)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	t.Parallel()

	users := newMockUserStore()
	svc := auth.NewService(users, newMockSessionStore(), time.Hour)
	h := NewAuthHandler(svc, newMockAccountStore(), users, time.Hour, false, discardLogger())

	accountID := int64(1)
	user := seedUser(t, users, "user@acme.test", "pw-123456", &accountID, models.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.IdentityOf(user)))
	rec := httptest.NewRecorder()
	h.HandleMe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user@acme.test"`)
	assert.NotContains(t, rec.Body.String(), user.PasswordHash)
}
