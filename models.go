package userservice

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the account lifecycle status asserted by moderation.
type UserStatus = string

const (
	UserStatusNormal    UserStatus = "NORMAL"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusBanned    UserStatus = "BANNED"
)

// statusTransitions holds the allowed moderation moves. A banned account can
// only be reinstated to NORMAL.
var statusTransitions = map[UserStatus]map[UserStatus]struct{}{
	UserStatusNormal: {
		UserStatusSuspended: {},
		UserStatusBanned:    {},
	},
	UserStatusSuspended: {
		UserStatusNormal: {},
		UserStatusBanned: {},
	},
	UserStatusBanned: {
		UserStatusNormal: {},
	},
}

// IsValidUserStatus reports whether status is one of the known lifecycle values.
func IsValidUserStatus(status UserStatus) bool {
	switch status {
	case UserStatusNormal, UserStatusSuspended, UserStatusBanned:
		return true
	}
	return false
}

// CanTransitionStatus reports whether a moderation status change is allowed.
func CanTransitionStatus(from, to UserStatus) bool {
	targets, ok := statusTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// BlockedStatuses are the statuses the gateway blocklist bootstrap exports.
func BlockedStatuses() []UserStatus {
	return []UserStatus{UserStatusSuspended, UserStatusBanned}
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	Profile       string     `bun:"profile_detail" json:"profile_detail,omitempty"`
	Status        UserStatus `bun:"status,notnull" json:"status,omitempty"`
	IsAuthor      bool       `bun:"is_author" json:"is_author,omitempty"`
	IsAdmin       bool       `bun:"is_admin" json:"is_admin,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login,nullzero" json:"last_login,omitempty"`
	LastActiveAt  *time.Time `bun:"last_active,nullzero" json:"last_active,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Enabled reports whether the account may authenticate. Only NORMAL accounts
// are enabled; the check always runs against live store data, never headers.
func (u *User) Enabled() bool {
	return u != nil && u.Status == UserStatusNormal
}

// EnsureStatus backfills the default status on new records.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusNormal
	}
}

// ProcessedEvent records a consumed message so redeliveries become no-ops.
// At most one row exists per idempotency key; writers insert conditionally
// on the primary key rather than check-then-insert.
type ProcessedEvent struct {
	bun.BaseModel  `bun:"table:processed_events,alias:pev"`
	IdempotencyKey string    `bun:"idempotency_key,pk" json:"idempotency_key"`
	EventType      string    `bun:"event_type,notnull" json:"event_type"`
	ServiceName    string    `bun:"service_name,notnull" json:"service_name"`
	ProcessedAt    time.Time `bun:"processed_at,notnull" json:"processed_at"`
	EventData      string    `bun:"event_data,nullzero" json:"event_data,omitempty"`
}
