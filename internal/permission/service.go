package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/audit"
	permdm "github.com/studymatch/backend/internal/core/datamodel/permission"
	"github.com/studymatch/backend/internal/core/datamodel/user"
	"github.com/studymatch/backend/internal/core/events"
)

// UserReader is the slice of user persistence the workflow needs.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Service runs the permission request and grant state machine.
type Service struct {
	repo   Repository
	users  UserReader
	bus    *events.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, users UserReader, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// CreateRequest files a first-time access request. At most one pending
// initial request may exist per user; the repository enforces that inside
// the insert transaction.
func (s *Service) CreateRequest(ctx context.Context, userID int64, dto CreateRequestDTO) (*permdm.Request, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	req := &permdm.Request{
		UserID:            userID,
		Reason:            dto.Reason,
		RequestedDuration: dto.Duration,
		ExtraInfo:         dto.ExtraInfo,
		Status:            permdm.StatusPending,
	}
	if err := s.repo.CreatePending(ctx, req); err != nil {
		if errors.Is(err, ErrPendingExists) {
			return nil, internal.ErrDuplicateRequest
		}
		return nil, internal.NewInternalError("failed to create request", err)
	}

	s.recordRequestAudit(ctx, userID, audit.ActionRequestSubmit, req.ID, "")
	return req, nil
}

// RequestExtension files an extension request, allowed only while the
// user's access is still active. The sentinel reason string marks the
// request class so one pending initial and one pending extension can
// coexist without colliding.
func (s *Service) RequestExtension(ctx context.Context, userID int64, dto CreateRequestDTO) (*permdm.Request, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	if u.Status != user.StatusActive {
		return nil, internal.NewValidationError(
			"extensions can only be requested while access is active",
			internal.ErrCodeValidationFailed)
	}

	reason := permdm.ExtensionReason
	if dto.Reason != "" {
		reason = fmt.Sprintf("%s: %s", permdm.ExtensionReason, dto.Reason)
	}

	req := &permdm.Request{
		UserID:            userID,
		Reason:            reason,
		RequestedDuration: dto.Duration,
		ExtraInfo:         dto.ExtraInfo,
		Status:            permdm.StatusPending,
	}
	if err := s.repo.CreatePending(ctx, req); err != nil {
		if errors.Is(err, ErrPendingExists) {
			return nil, internal.ErrDuplicateRequest
		}
		return nil, internal.NewInternalError("failed to create extension request", err)
	}

	s.recordRequestAudit(ctx, userID, audit.ActionRequestSubmit, req.ID, "extension")
	return req, nil
}

// MyRequests lists the caller's own requests, newest first.
func (s *Service) MyRequests(ctx context.Context, userID int64) ([]permdm.Request, error) {
	reqs, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list requests", err)
	}
	return reqs, nil
}

// ListAll lists every request, optionally filtered by status. Admin only
// at the route layer.
func (s *Service) ListAll(ctx context.Context, status string) ([]permdm.Request, error) {
	if status != "" && status != permdm.StatusPending && status != permdm.StatusApproved && status != permdm.StatusRejected {
		return nil, internal.NewValidationError("unknown status filter", internal.ErrCodeValidationFailed)
	}
	reqs, err := s.repo.ListAll(ctx, status)
	if err != nil {
		return nil, internal.NewInternalError("failed to list requests", err)
	}
	return reqs, nil
}

// ReviewRequest settles a pending request. Approval validates the granted
// duration and applies the permission window in the same transaction as
// the status flip, so a request is never approved without its grant.
func (s *Service) ReviewRequest(ctx context.Context, reviewerID, requestID int64, dto ReviewDTO) (*permdm.Request, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, internal.ErrRequestNotFound
	}
	if req.Status != permdm.StatusPending {
		return nil, internal.ErrAlreadyReviewed
	}

	review := Review{
		ReviewerID: reviewerID,
		Comments:   dto.Comments,
		ReviewedAt: s.now(),
	}

	if dto.Approved {
		if dto.ApprovedDuration == nil || *dto.ApprovedDuration == "" {
			return nil, internal.ErrApprovalNeedsGrant
		}
		days, err := ParseDurationDays(*dto.ApprovedDuration)
		if err != nil {
			return nil, err
		}
		review.ApprovedDuration = dto.ApprovedDuration

		grant := NewGrant(days, reviewerID, s.now())
		if err := s.repo.Approve(ctx, requestID, review, grant); err != nil {
			if errors.Is(err, ErrNotPending) {
				return nil, internal.ErrAlreadyReviewed
			}
			if errors.Is(err, ErrGrantNotApplied) {
				return nil, internal.ErrAdminImmutable
			}
			return nil, internal.NewInternalError("failed to approve request", err)
		}

		s.recordRequestAudit(ctx, reviewerID, audit.ActionRequestReview, requestID, "approved "+*dto.ApprovedDuration)
		s.recordGrantAudit(ctx, reviewerID, req.UserID, days)
	} else {
		if err := s.repo.Reject(ctx, requestID, review); err != nil {
			if errors.Is(err, ErrNotPending) {
				return nil, internal.ErrAlreadyReviewed
			}
			return nil, internal.NewInternalError("failed to reject request", err)
		}

		s.recordRequestAudit(ctx, reviewerID, audit.ActionRequestReview, requestID, "rejected")
	}

	return s.repo.GetByID(ctx, requestID)
}

// GrantDirect sets a user's access window outside the review flow. The
// data layer refuses to touch admin rows, so granting at an admin is a
// silent no-op reported as a validation error here.
func (s *Service) GrantDirect(ctx context.Context, adminID, targetUserID int64, dto GrantDTO) error {
	days, err := dto.ResolveDays()
	if err != nil {
		return err
	}

	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		return internal.ErrUserNotFound
	}

	grant := NewGrant(days, adminID, s.now())
	affected, err := s.repo.ApplyGrant(ctx, targetUserID, grant)
	if err != nil {
		return internal.NewInternalError("failed to apply grant", err)
	}
	if affected == 0 {
		return internal.ErrAdminImmutable
	}

	s.recordGrantAudit(ctx, adminID, targetUserID, days)
	return nil
}

// DeleteRequest removes a request regardless of its status. Admin only at
// the route layer.
func (s *Service) DeleteRequest(ctx context.Context, adminID, requestID int64) error {
	if _, err := s.repo.GetByID(ctx, requestID); err != nil {
		return internal.ErrRequestNotFound
	}
	if err := s.repo.Delete(ctx, requestID); err != nil {
		return internal.NewInternalError("failed to delete request", err)
	}

	s.recordRequestAudit(ctx, adminID, audit.ActionRequestDelete, requestID, "")
	return nil
}

func (s *Service) recordRequestAudit(ctx context.Context, actorID int64, action string, requestID int64, details string) {
	entity := audit.EntityRequest
	s.publishAudit(ctx, audit.Record{
		UserID:     &actorID,
		Action:     action,
		EntityType: &entity,
		EntityID:   &requestID,
		Details:    details,
	})
}

func (s *Service) recordGrantAudit(ctx context.Context, adminID, targetUserID int64, days int) {
	entity := audit.EntityUser
	s.publishAudit(ctx, audit.Record{
		UserID:     &adminID,
		Action:     audit.ActionGrant,
		EntityType: &entity,
		EntityID:   &targetUserID,
		Details:    fmt.Sprintf("days=%d", days),
	})
}

func (s *Service) publishAudit(ctx context.Context, rec audit.Record) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, audit.NewEvent(rec)); err != nil {
		s.logger.Warn("failed to publish audit event", "action", rec.Action, "error", err)
	}
}
