package auth

import "github.com/letterboxhq/letterbox/internal/models"

// Identity is the authenticated caller bound to a request or a streaming
// connection. AccountID is nil for sysadmins, who operate across accounts.
type Identity struct {
	UserID    int64
	AccountID *int64
	Role      models.Role
}

// IdentityOf derives an Identity from a user record.
func IdentityOf(u *models.User) Identity {
	return Identity{
		UserID:    u.ID,
		AccountID: u.AccountID,
		Role:      u.Role,
	}
}

func (i Identity) IsSysadmin() bool {
	return i.Role == models.RoleSysadmin
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// SameAccount reports whether the identity belongs to the given account.
// Always false for identities without an account id.
func (i Identity) SameAccount(accountID int64) bool {
	return i.AccountID != nil && *i.AccountID == accountID
}
