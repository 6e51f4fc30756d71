package userservice

import "github.com/google/uuid"

// Role is an authority granted to an authenticated principal.
type Role = string

const (
	RoleUser   Role = "USER"
	RoleAuthor Role = "AUTHOR"
	RoleAdmin  Role = "ADMIN"
)

// PrincipalSource tells which authentication path produced the principal.
type PrincipalSource string

const (
	PrincipalSourceGateway PrincipalSource = "gateway"
	PrincipalSourceToken   PrincipalSource = "token"
)

// Principal is the authenticated identity attached to a request. Identity
// fields come from the user store, not from whatever the caller sent.
type Principal struct {
	ID       uuid.UUID       `json:"id"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Roles    []Role          `json:"roles"`
	Enabled  bool            `json:"enabled"`
	Source   PrincipalSource `json:"source"`
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// NewPrincipalFromUser projects a stored user into a request principal.
// Every user holds USER; AUTHOR and ADMIN come from the store flags.
func NewPrincipalFromUser(user *User, source PrincipalSource) *Principal {
	if user == nil {
		return nil
	}

	roles := []Role{RoleUser}
	if user.IsAuthor {
		roles = append(roles, RoleAuthor)
	}
	if user.IsAdmin {
		roles = append(roles, RoleAdmin)
	}

	return &Principal{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Roles:    roles,
		Enabled:  user.Enabled(),
		Source:   source,
	}
}
