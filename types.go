package userservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Logger is the minimal logging surface this package needs. Wire your own
// structured logger behind it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{ prefix string }

func (l defLogger) tag() string {
	if l.prefix == "" {
		return "USERSVC"
	}
	return l.prefix
}

func (l defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] "+l.tag()+" "+format+"\n", args...)
}

func (l defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] "+l.tag()+" "+format+"\n", args...)
}

func (l defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] "+l.tag()+" "+format+"\n", args...)
}

func (l defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] "+l.tag()+" "+format+"\n", args...)
}

// DefaultLogger returns the fallback printf logger.
func DefaultLogger(prefix string) Logger {
	return defLogger{prefix: prefix}
}

// UserStore is the read surface authentication needs from the user
// repository.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*AuthClaims, error)
}
