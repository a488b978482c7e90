package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/audit"
	"github.com/studymatch/backend/internal/auth"
	"github.com/studymatch/backend/internal/core/datamodel/user"
	"github.com/studymatch/backend/internal/core/events"
	"github.com/studymatch/backend/internal/mailer"
)

const resetTokenTTL = 24 * time.Hour

// Service implements account self-service and the admin surface.
type Service struct {
	repo        Repository
	resetTokens ResetTokenStore
	stats       StatsReader
	sessions    SessionRevoker
	mail        mailer.Sender
	bus         *events.EventBus
	logger      *slog.Logger
	bcryptCost  int
	frontendURL string
	now         func() time.Time
}

func NewService(
	repo Repository,
	resetTokens ResetTokenStore,
	stats StatsReader,
	sessions SessionRevoker,
	mail mailer.Sender,
	bus *events.EventBus,
	logger *slog.Logger,
	bcryptCost int,
	frontendURL string,
) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:        repo,
		resetTokens: resetTokens,
		stats:       stats,
		sessions:    sessions,
		mail:        mail,
		bus:         bus,
		logger:      logger,
		bcryptCost:  bcryptCost,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

// Register creates a new account in pending status. New users cannot reach
// protected resources until an admin approves their access request.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByUsername(ctx, dto.Username); err == nil {
		return nil, internal.ErrUsernameTaken
	}
	if _, err := s.repo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, internal.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &user.User{
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: string(hash),
		Role:         user.RoleUser,
		Status:       user.StatusPending,
		FullName:     dto.FullName,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.recordAudit(ctx, audit.Record{
		UserID:  &u.ID,
		Action:  audit.ActionRegister,
		Details: "username " + u.Username,
	})
	return u, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, dto UpdateProfileDTO) (*user.User, error) {
	update := ProfileUpdate{
		FullName:      dto.FullName,
		TargetCountry: dto.TargetCountry,
		TargetDegree:  dto.TargetDegree,
	}
	if err := s.repo.UpdateProfile(ctx, userID, update); err != nil {
		return nil, internal.NewInternalError("failed to update profile", err)
	}

	s.recordAudit(ctx, audit.Record{UserID: &userID, Action: audit.ActionProfileUpdate})
	return s.Profile(ctx, userID)
}

// ChangePassword verifies the current password before replacing it.
func (s *Service) ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return internal.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.OldPassword)); err != nil {
		return internal.NewValidationError("current password is incorrect", internal.ErrCodeInvalidPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	s.recordAudit(ctx, audit.Record{UserID: &userID, Action: audit.ActionPasswordChange})
	return nil
}

// ForgotPassword issues a reset token and mails the link. The response is
// identical whether or not the email exists, so the endpoint cannot be
// used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error {
	u, err := s.repo.GetByEmail(ctx, dto.Email)
	if err != nil {
		s.logger.Debug("password reset for unknown email", "email", dto.Email)
		return nil
	}

	token, err := auth.GenerateRandomToken()
	if err != nil {
		return internal.NewInternalError("failed to generate reset token", err)
	}

	if err := s.resetTokens.PurgeForUser(ctx, u.ID); err != nil {
		s.logger.Warn("failed to purge old reset tokens", "user_id", u.ID, "error", err)
	}

	record := &user.PasswordResetToken{
		UserID:    u.ID,
		TokenHash: auth.Fingerprint(token),
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.resetTokens.Create(ctx, record); err != nil {
		return internal.NewInternalError("failed to store reset token", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	if err := s.mail.SendPasswordReset(ctx, u.Email, resetURL); err != nil {
		s.logger.Error("failed to send reset mail", "user_id", u.ID, "error", err)
	}

	return nil
}

// ResetPassword consumes a reset token and replaces the password. Every
// live session is revoked so a stolen token cannot outlive the reset.
func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	record, err := s.resetTokens.GetValid(ctx, auth.Fingerprint(dto.Token), s.now())
	if err != nil {
		return internal.ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, record.UserID, string(hash)); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}
	if err := s.resetTokens.MarkUsed(ctx, record.ID, s.now()); err != nil {
		s.logger.Warn("failed to mark reset token used", "token_id", record.ID, "error", err)
	}
	if _, err := s.sessions.DeleteForUser(ctx, record.UserID); err != nil {
		s.logger.Warn("failed to revoke sessions after reset", "user_id", record.UserID, "error", err)
	}

	s.recordAudit(ctx, audit.Record{UserID: &record.UserID, Action: audit.ActionPasswordReset})
	return nil
}

// Stats returns the admin dashboard counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to read stats", err)
	}
	return stats, nil
}

// ListUsers returns every account with its derived access state.
func (s *Service) ListUsers(ctx context.Context) ([]AdminUserView, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list users", err)
	}

	now := s.now()
	views := make([]AdminUserView, 0, len(users))
	for i := range users {
		views = append(views, ToAdminUserView(&users[i], now))
	}
	return views, nil
}

// DeleteUser removes a non-admin account and its dependents. Admin
// accounts cannot be deleted through the API.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID int64) error {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return internal.ErrUserNotFound
	}
	if target.Role == user.RoleAdmin {
		return internal.ErrAdminImmutable
	}

	if _, err := s.sessions.DeleteForUser(ctx, targetID); err != nil {
		s.logger.Warn("failed to revoke sessions before delete", "user_id", targetID, "error", err)
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return internal.NewInternalError("failed to delete user", err)
	}

	entity := audit.EntityUser
	s.recordAudit(ctx, audit.Record{
		UserID:     &actorID,
		Action:     audit.ActionUserDelete,
		EntityType: &entity,
		EntityID:   &targetID,
		Details:    "username " + target.Username,
	})
	return nil
}

// SetStatus lets an admin override an account's status. Suspension revokes
// all live sessions immediately.
func (s *Service) SetStatus(ctx context.Context, actorID, targetID int64, dto UpdateStatusDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	if target.Role == user.RoleAdmin {
		return nil, internal.ErrAdminImmutable
	}

	if err := s.repo.UpdateStatus(ctx, targetID, dto.Status); err != nil {
		return nil, internal.NewInternalError("failed to update status", err)
	}

	if dto.Status == user.StatusSuspended || dto.Status == user.StatusInactive {
		if _, err := s.sessions.DeleteForUser(ctx, targetID); err != nil {
			s.logger.Warn("failed to revoke sessions on status change", "user_id", targetID, "error", err)
		}
	}

	entity := audit.EntityUser
	s.recordAudit(ctx, audit.Record{
		UserID:     &actorID,
		Action:     audit.ActionStatusChange,
		EntityType: &entity,
		EntityID:   &targetID,
		Details:    "status " + dto.Status,
	})
	return s.repo.GetByID(ctx, targetID)
}

func (s *Service) recordAudit(ctx context.Context, rec audit.Record) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, audit.NewEvent(rec)); err != nil {
		s.logger.Warn("failed to publish audit event", "action", rec.Action, "error", err)
	}
}
