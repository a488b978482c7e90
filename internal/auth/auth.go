package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studymatch/backend/internal/core/datamodel/user"
)

type contextKey string

// ContextPrincipalKey is where the auth middleware stores the resolved
// principal for downstream handlers.
const ContextPrincipalKey contextKey = "principal"

// Claims carries the identity fields embedded in access tokens. Role and
// username are informational; authorization always re-reads the user row.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is an authenticated caller: the user row as loaded during
// token resolution plus the fingerprint of the presenting token.
type Principal struct {
	User             *user.User
	TokenFingerprint string
}

func (p *Principal) IsAdmin() bool {
	return p.User != nil && p.User.Role == user.RoleAdmin
}

// TokenGenerator creates and validates signed access tokens.
type TokenGenerator interface {
	Generate(u *user.User) (token string, expiresAt time.Time, err error)
	Validate(tokenString string) (*Claims, error)
}

// UserStore is the slice of user persistence the auth flow needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// SessionStore persists issued sessions keyed by token fingerprint.
type SessionStore interface {
	Create(ctx context.Context, session *user.Session) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*user.Session, error)
	DeleteByFingerprint(ctx context.Context, fingerprint string) error
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ServiceAPI is what transport needs from the auth service.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Resolve(ctx context.Context, rawToken string) (*Principal, error)
}

// Fingerprint derives the session key for a raw token. The server stores
// this digest instead of the token itself, so a leaked sessions table
// cannot be replayed.
func Fingerprint(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// PrincipalFromContext returns the principal placed by RequireAuth, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ContextPrincipalKey).(*Principal)
	return p
}
