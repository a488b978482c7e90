package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/audit"
	"github.com/studymatch/backend/internal/core/datamodel/user"
	"github.com/studymatch/backend/internal/core/events"
)

// Service implements login, logout and token resolution.
type Service struct {
	users    UserStore
	sessions SessionStore
	tokenGen TokenGenerator
	bus      *events.EventBus
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(users UserStore, sessions SessionStore, tokenGen TokenGenerator, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		tokenGen: tokenGen,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
}

// Login authenticates credentials and issues a fresh session. Each login
// creates its own session row, so concurrent logins from different devices
// coexist and are revoked independently.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.GetByUsername(ctx, dto.Username)
	if err != nil {
		// Run the comparison against a dummy hash anyway so a missing
		// username costs the same as a wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(dto.Password))
		s.recordAudit(ctx, audit.Record{
			Action:    audit.ActionLoginFailed,
			Details:   "unknown username " + dto.Username,
			IPAddress: dto.ClientIP,
		})
		return nil, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.recordAudit(ctx, audit.Record{
			UserID:    &u.ID,
			Action:    audit.ActionLoginFailed,
			Details:   "wrong password",
			IPAddress: dto.ClientIP,
		})
		return nil, internal.ErrInvalidCredentials
	}

	switch u.Status {
	case user.StatusSuspended:
		s.recordAudit(ctx, audit.Record{
			UserID:    &u.ID,
			Action:    audit.ActionLoginFailed,
			Details:   "account suspended",
			IPAddress: dto.ClientIP,
		})
		return nil, internal.ErrAccountSuspended
	case user.StatusInactive:
		s.recordAudit(ctx, audit.Record{
			UserID:    &u.ID,
			Action:    audit.ActionLoginFailed,
			Details:   "account inactive",
			IPAddress: dto.ClientIP,
		})
		return nil, internal.ErrAccountInactive
	}

	token, expiresAt, err := s.tokenGen.Generate(u)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	session := &user.Session{
		UserID:           u.ID,
		TokenFingerprint: Fingerprint(token),
		ExpiresAt:        expiresAt,
		IPAddress:        dto.ClientIP,
		UserAgent:        dto.UserAgent,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, internal.NewInternalError("failed to store session", err)
	}

	if err := s.users.UpdateLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", "user_id", u.ID, "error", err)
	}

	s.recordAudit(ctx, audit.Record{
		UserID:    &u.ID,
		Action:    audit.ActionLogin,
		IPAddress: dto.ClientIP,
	})

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      u,
	}, nil
}

// Logout revokes the session behind the presented token. Revoking an
// already-revoked or unknown token is not an error.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	fingerprint := Fingerprint(rawToken)

	if err := s.sessions.DeleteByFingerprint(ctx, fingerprint); err != nil {
		return internal.NewInternalError("failed to revoke session", err)
	}

	if claims, err := s.tokenGen.Validate(rawToken); err == nil {
		s.recordAudit(ctx, audit.Record{
			UserID: &claims.UserID,
			Action: audit.ActionLogout,
		})
	}

	return nil
}

// Resolve turns a bearer token into a principal. Every failure mode maps
// to the same unauthorized error so callers cannot probe which step broke.
func (s *Service) Resolve(ctx context.Context, rawToken string) (*Principal, error) {
	claims, err := s.tokenGen.Validate(rawToken)
	if err != nil {
		s.logger.Debug("token rejected", "error", err)
		return nil, internal.ErrAuthFailed
	}

	fingerprint := Fingerprint(rawToken)
	session, err := s.sessions.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		s.logger.Debug("no live session for token", "user_id", claims.UserID)
		return nil, internal.ErrAuthFailed
	}

	if !session.ExpiresAt.After(s.now()) {
		// Lazy cleanup; the sweep command catches what this misses.
		if derr := s.sessions.DeleteByFingerprint(ctx, fingerprint); derr != nil {
			s.logger.Warn("failed to drop expired session", "error", derr)
		}
		return nil, internal.ErrAuthFailed
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Debug("token user missing", "user_id", claims.UserID)
		return nil, internal.ErrAuthFailed
	}

	if u.Status != user.StatusActive && u.Status != user.StatusPending {
		s.logger.Debug("token user not loginable", "user_id", u.ID, "status", u.Status)
		return nil, internal.ErrAuthFailed
	}

	return &Principal{User: u, TokenFingerprint: fingerprint}, nil
}

// RevokeAllSessions drops every session a user holds. Used when accounts
// are suspended or deleted so outstanding tokens die immediately.
func (s *Service) RevokeAllSessions(ctx context.Context, userID int64) error {
	n, err := s.sessions.DeleteForUser(ctx, userID)
	if err != nil {
		return internal.NewInternalError("failed to revoke sessions", err)
	}
	if n > 0 {
		s.logger.Info("revoked sessions", "user_id", userID, "count", n)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, rec audit.Record) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, audit.NewEvent(rec)); err != nil {
		s.logger.Warn("failed to publish audit event", "action", rec.Action, "error", err)
	}
}

// dummyHash is a bcrypt digest of a random string, used to equalize timing
// when the username does not exist.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// JWTTokenGenerator signs and validates HS256 access tokens.
type JWTTokenGenerator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (j *JWTTokenGenerator) Generate(u *user.User) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.ttl)

	claims := &Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   u.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (j *JWTTokenGenerator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// GenerateRandomToken returns a cryptographically random hex string, used
// for password reset links.
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
