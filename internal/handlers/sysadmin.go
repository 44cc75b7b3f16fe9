package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
	"github.com/letterboxhq/letterbox/pkg/pg"
)

// SysadminHandler serves platform-operator endpoints: provisioning
// tenant accounts and toggling their state.
type SysadminHandler struct {
	accounts store.AccountStore
	users    store.UserStore
	log      *slog.Logger
}

func NewSysadminHandler(accounts store.AccountStore, users store.UserStore, log *slog.Logger) *SysadminHandler {
	return &SysadminHandler{accounts: accounts, users: users, log: log}
}

func (h *SysadminHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list accounts", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondData(w, http.StatusOK, viewAccounts(accounts))
}

// createAccountRequest is the payload provisioning a tenant account
// with its first admin user. Shared by sysadmin provisioning and the
// public self-signup endpoint.
type createAccountRequest struct {
	Name               string  `json:"name"`
	Domain             string  `json:"domain"`
	ProviderAPIKey     string  `json:"providerApiKey"`
	DefaultFromAddress string  `json:"defaultFromAddress"`
	DefaultFromName    string  `json:"defaultFromName"`
	ReplyToAddress     *string `json:"defaultReplyToAddress"`
	ReplyToName        *string `json:"defaultReplyToName"`
	AdminEmail         string  `json:"adminEmail"`
	AdminName          string  `json:"adminName"`
	AdminPassword      string  `json:"adminPassword"`
}

// validate normalizes the request and returns a client-facing message
// for the first missing field, or "" when the request is usable.
func (req *createAccountRequest) validate() string {
	req.Domain = strings.ToLower(strings.TrimSpace(req.Domain))
	switch {
	case req.Name == "" || req.Domain == "":
		return "name and domain are required"
	case req.ProviderAPIKey == "":
		return "providerApiKey is required"
	case req.DefaultFromAddress == "":
		return "defaultFromAddress is required"
	case req.AdminEmail == "" || req.AdminPassword == "":
		return "adminEmail and adminPassword are required"
	}
	return ""
}

var (
	errDomainTaken     = errors.New("domain is already registered")
	errAdminEmailTaken = errors.New("admin email is already taken")
)

// provisionAccount creates a tenant account together with its first
// admin user. Conflicts surface as errDomainTaken/errAdminEmailTaken.
func provisionAccount(ctx context.Context, accounts store.AccountStore, users store.UserStore, req createAccountRequest) (*models.Account, *models.User, error) {
	account, err := accounts.CreateAccount(ctx, store.CreateAccountParams{
		Name:                  req.Name,
		Domain:                req.Domain,
		ProviderAPIKey:        req.ProviderAPIKey,
		DefaultFromAddress:    req.DefaultFromAddress,
		DefaultFromName:       req.DefaultFromName,
		DefaultReplyToAddress: req.ReplyToAddress,
		DefaultReplyToName:    req.ReplyToName,
	})
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, nil, errDomainTaken
		}
		return nil, nil, fmt.Errorf("create account: %w", err)
	}

	hash, err := auth.HashPassword(req.AdminPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("hash admin password: %w", err)
	}

	admin, err := users.CreateUser(ctx, store.CreateUserParams{
		AccountID:    &account.ID,
		Email:        req.AdminEmail,
		Name:         req.AdminName,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, nil, errAdminEmailTaken
		}
		return nil, nil, fmt.Errorf("create account admin: %w", err)
	}

	return account, admin, nil
}

// HandleCreateAccount provisions a tenant account together with its
// first admin user.
func (h *SysadminHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	account, admin, err := provisionAccount(r.Context(), h.accounts, h.users, req)
	if err != nil {
		switch {
		case errors.Is(err, errDomainTaken), errors.Is(err, errAdminEmailTaken):
			respondError(w, http.StatusConflict, err.Error())
		default:
			h.log.ErrorContext(r.Context(), "failed to provision account", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondData(w, http.StatusCreated, map[string]any{
		"account": viewAccount(account),
		"admin":   viewUser(admin),
	})
}

// HandleSetAccountActive toggles a tenant account. Deactivated accounts
// keep their data but can no longer send mail.
func (h *SysadminHandler) HandleSetAccountActive(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if err := h.accounts.SetAccountActive(r.Context(), accountID, req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to update account state", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(w, http.StatusOK, "account updated")
}
