package userservice

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the validated view of a bearer token.
type AuthClaims struct {
	Subject  string
	UserID   string
	Email    string
	Role     Role
	Expires  time.Time
	IssuedAt time.Time
}

// JWTClaims is the wire shape of the tokens this service mints and accepts.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	UserEmail string `json:"email,omitempty"`
	UserRole  string `json:"role,omitempty"`
}

// AuthClaims projects the raw JWT claims into the validated view.
func (c *JWTClaims) AuthClaims() *AuthClaims {
	claims := &AuthClaims{
		Subject:  c.RegisteredClaims.Subject,
		UserID:   c.UID,
		Email:    c.UserEmail,
		Role:     c.UserRole,
		Expires:  numericDateTime(c.ExpiresAt),
		IssuedAt: numericDateTime(c.IssuedAt),
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims
}

func numericDateTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
