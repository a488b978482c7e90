package permission

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	permdm "github.com/studymatch/backend/internal/core/datamodel/permission"
	userdm "github.com/studymatch/backend/internal/core/datamodel/user"
	domain "github.com/studymatch/backend/internal/permission"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

const extensionPrefix = permdm.ExtensionReason + "%"

// CreatePending inserts a request after verifying no pending request of
// the same class exists. Under READ COMMITTED the count alone does not
// stop two concurrent submissions, so the check-then-insert runs while
// holding a row lock on the owning user. sqlite has a single writer and
// needs no lock.
func (r *Repository) CreatePending(ctx context.Context, req *permdm.Request) error {
	isExtension := req.IsExtension()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT id FROM users WHERE id = ? FOR UPDATE", req.UserID).Error; err != nil {
				return err
			}
		}

		query := tx.Model(&permdm.Request{}).
			Where("user_id = ? AND status = ?", req.UserID, permdm.StatusPending)
		if isExtension {
			query = query.Where("reason LIKE ?", extensionPrefix)
		} else {
			query = query.Where("reason NOT LIKE ?", extensionPrefix)
		}

		var count int64
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrPendingExists
		}

		return tx.Create(req).Error
	})
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*permdm.Request, error) {
	var req permdm.Request
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("request not found")
		}
		return nil, err
	}
	return &req, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]permdm.Request, error) {
	var reqs []permdm.Request
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *Repository) ListAll(ctx context.Context, status string) ([]permdm.Request, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var reqs []permdm.Request
	err := query.Find(&reqs).Error
	return reqs, err
}

// Approve flips a pending request to approved and applies the grant to
// the user row in the same transaction. The conditional update is the
// re-review guard: zero affected rows means someone else settled it first.
// A grant that lands on no user row (deleted, or promoted to admin since
// filing) rolls back the settle so the request stays pending.
func (r *Repository) Approve(ctx context.Context, requestID int64, review domain.Review, grant domain.Grant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := r.settle(tx, requestID, permdm.StatusApproved, review)
		if err != nil {
			return err
		}
		affected, err := applyGrant(tx, req.UserID, grant)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrGrantNotApplied
		}
		return nil
	})
}

func (r *Repository) Reject(ctx context.Context, requestID int64, review domain.Review) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := r.settle(tx, requestID, permdm.StatusRejected, review)
		return err
	})
}

func (r *Repository) settle(tx *gorm.DB, requestID int64, status string, review domain.Review) (*permdm.Request, error) {
	updates := map[string]interface{}{
		"status":            status,
		"reviewer_id":       review.ReviewerID,
		"reviewer_comments": review.Comments,
		"reviewed_at":       review.ReviewedAt,
	}
	if review.ApprovedDuration != nil {
		updates["approved_duration"] = *review.ApprovedDuration
	}

	result := tx.Model(&permdm.Request{}).
		Where("id = ? AND status = ?", requestID, permdm.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotPending
	}

	var req permdm.Request
	if err := tx.Where("id = ?", requestID).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ApplyGrant mutates a user's permission window. The role guard keeps
// admin rows out of reach even if the route layer is bypassed.
func (r *Repository) ApplyGrant(ctx context.Context, userID int64, grant domain.Grant) (int64, error) {
	return applyGrant(r.db.WithContext(ctx), userID, grant)
}

func applyGrant(tx *gorm.DB, userID int64, grant domain.Grant) (int64, error) {
	result := tx.Model(&userdm.User{}).
		Where("id = ? AND role = ?", userID, userdm.RoleUser).
		Updates(map[string]interface{}{
			"permission_granted_at": grant.GrantedAt,
			"permission_expires_at": grant.ExpiresAt,
			"permission_granted_by": grant.GrantedBy,
			"status":                grant.Status,
		})
	return result.RowsAffected, result.Error
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&permdm.Request{}).Error
}
