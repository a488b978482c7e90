package user

import (
	"context"
	"time"

	"github.com/studymatch/backend/internal/core/datamodel/user"
)

// Repository is the persistence surface for user accounts.
type Repository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	List(ctx context.Context) ([]user.User, error)
	UpdateProfile(ctx context.Context, id int64, fields ProfileUpdate) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// ProfileUpdate lists the self-service editable columns. Nil means leave
// the column untouched.
type ProfileUpdate struct {
	FullName      *string
	TargetCountry *string
	TargetDegree  *string
}

// ResetTokenStore persists single-use password reset tokens.
type ResetTokenStore interface {
	Create(ctx context.Context, token *user.PasswordResetToken) error
	GetValid(ctx context.Context, tokenHash string, now time.Time) (*user.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id int64, at time.Time) error
	PurgeForUser(ctx context.Context, userID int64) error
}

// StatsReader serves the admin dashboard counters.
type StatsReader interface {
	Stats(ctx context.Context) (*Stats, error)
}

// SessionRevoker drops every live session for a user. Satisfied by the
// auth session store.
type SessionRevoker interface {
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	TotalUsers      int64 `db:"total_users" json:"total_users"`
	ActiveUsers     int64 `db:"active_users" json:"active_users"`
	PendingUsers    int64 `db:"pending_users" json:"pending_users"`
	PendingRequests int64 `db:"pending_requests" json:"pending_requests"`
	TotalRequests   int64 `db:"total_requests" json:"total_requests"`
}

// EffectiveAccess derives the access state shown to admins. The stored
// status is a cached hint; the expiry column decides whether an active
// grant still holds.
func EffectiveAccess(u *user.User, now time.Time) string {
	if u.Role == user.RoleAdmin {
		return "admin"
	}
	if u.Status == user.StatusActive {
		if u.PermissionExpiresAt != nil && !u.PermissionExpiresAt.After(now) {
			return "expired"
		}
		return "active"
	}
	return u.Status
}
