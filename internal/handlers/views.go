package handlers

import (
	"time"

	"github.com/letterboxhq/letterbox/internal/models"
)

// View types decouple the JSON surface from the storage models. The
// account view never exposes the provider credential.

type accountView struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	Domain                string    `json:"domain"`
	DefaultFromAddress    string    `json:"defaultFromAddress"`
	DefaultFromName       string    `json:"defaultFromName"`
	DefaultReplyToAddress *string   `json:"defaultReplyToAddress,omitempty"`
	DefaultReplyToName    *string   `json:"defaultReplyToName,omitempty"`
	IsActive              bool      `json:"isActive"`
	CreatedAt             time.Time `json:"createdAt"`
}

func viewAccount(a *models.Account) accountView {
	return accountView{
		ID:                    a.ID,
		Name:                  a.Name,
		Domain:                a.Domain,
		DefaultFromAddress:    a.DefaultFromAddress,
		DefaultFromName:       a.DefaultFromName,
		DefaultReplyToAddress: a.DefaultReplyToAddress,
		DefaultReplyToName:    a.DefaultReplyToName,
		IsActive:              a.IsActive,
		CreatedAt:             a.CreatedAt,
	}
}

type userView struct {
	ID        int64     `json:"id"`
	AccountID *int64    `json:"accountId,omitempty"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewUser(u *models.User) userView {
	return userView{
		ID:        u.ID,
		AccountID: u.AccountID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

type emailView struct {
	ID             int64               `json:"id"`
	AccountID      int64               `json:"accountId"`
	UserID         *int64              `json:"userId,omitempty"`
	Direction      string              `json:"direction"`
	From           string              `json:"from"`
	To             string              `json:"to"`
	CC             *string             `json:"cc,omitempty"`
	BCC            *string             `json:"bcc,omitempty"`
	Subject        *string             `json:"subject,omitempty"`
	HTML           *string             `json:"html,omitempty"`
	Text           *string             `json:"text,omitempty"`
	Attachments    []models.Attachment `json:"attachments,omitempty"`
	DeliveryStatus *string             `json:"deliveryStatus,omitempty"`
	BounceReason   *string             `json:"bounceReason,omitempty"`
	BounceType     *string             `json:"bounceType,omitempty"`
	DeliveredAt    *time.Time          `json:"deliveredAt,omitempty"`
	BouncedAt      *time.Time          `json:"bouncedAt,omitempty"`
	FailedAt       *time.Time          `json:"failedAt,omitempty"`
	EmailCreatedAt *time.Time          `json:"emailCreatedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

func viewEmail(e *models.Email) emailView {
	v := emailView{
		ID:             e.ID,
		AccountID:      e.AccountID,
		UserID:         e.UserID,
		Direction:      string(e.Direction),
		From:           e.From,
		To:             e.To,
		CC:             e.CC,
		BCC:            e.BCC,
		Subject:        e.Subject,
		HTML:           e.HTML,
		Text:           e.Text,
		Attachments:    e.Attachments,
		BounceReason:   e.BounceReason,
		DeliveredAt:    e.DeliveredAt,
		BouncedAt:      e.BouncedAt,
		FailedAt:       e.FailedAt,
		EmailCreatedAt: e.EmailCreatedAt,
		CreatedAt:      e.CreatedAt,
	}
	if e.DeliveryStatus != nil {
		status := string(*e.DeliveryStatus)
		v.DeliveryStatus = &status
	}
	if e.BounceType != nil {
		bt := string(*e.BounceType)
		v.BounceType = &bt
	}
	return v
}

func viewEmails(emails []models.Email) []emailView {
	views := make([]emailView, len(emails))
	for i := range emails {
		views[i] = viewEmail(&emails[i])
	}
	return views
}

func viewUsers(users []models.User) []userView {
	views := make([]userView, len(users))
	for i := range users {
		views[i] = viewUser(&users[i])
	}
	return views
}

func viewAccounts(accounts []models.Account) []accountView {
	views := make([]accountView, len(accounts))
	for i := range accounts {
		views[i] = viewAccount(&accounts[i])
	}
	return views
}
