// Package policy decides which connected sessions and which queries may
// see a given account's mail. It is the authorization boundary for
// real-time data: a defect here leaks tenant data across accounts.
package policy

import (
	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
)

// CanSee reports whether the identity may observe an event belonging to
// the given account and, optionally, a specific user's mailbox.
//
//	sysadmin: always
//	admin:    same account
//	user:     same account and own mailbox
func CanSee(id auth.Identity, accountID int64, userID *int64) bool {
	switch id.Role {
	case models.RoleSysadmin:
		return true
	case models.RoleAdmin:
		return id.SameAccount(accountID)
	case models.RoleUser:
		return id.SameAccount(accountID) && userID != nil && *userID == id.UserID
	default:
		return false
	}
}

// ScopeFor translates an identity into the email-query scope it is
// allowed to read. The read path shares the same rules as the push path.
func ScopeFor(id auth.Identity) store.EmailScope {
	switch id.Role {
	case models.RoleSysadmin:
		return store.EmailScope{}
	case models.RoleAdmin:
		return store.EmailScope{AccountID: id.AccountID}
	default:
		uid := id.UserID
		return store.EmailScope{AccountID: id.AccountID, UserID: &uid}
	}
}
