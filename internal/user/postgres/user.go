package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	userdm "github.com/studymatch/backend/internal/core/datamodel/user"
	domain "github.com/studymatch/backend/internal/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *userdm.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*userdm.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*userdm.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*userdm.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *Repository) getOne(ctx context.Context, query string, arg interface{}) (*userdm.User, error) {
	var u userdm.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) List(ctx context.Context) ([]userdm.User, error) {
	var users []userdm.User
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *Repository) UpdateProfile(ctx context.Context, id int64, fields domain.ProfileUpdate) error {
	updates := map[string]interface{}{}
	if fields.FullName != nil {
		updates["full_name"] = *fields.FullName
	}
	if fields.TargetCountry != nil {
		updates["target_country"] = *fields.TargetCountry
	}
	if fields.TargetDegree != nil {
		updates["target_degree"] = *fields.TargetDegree
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&userdm.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&userdm.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&userdm.User{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userdm.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// DeactivateLapsed flips users whose grant window has passed from active
// to inactive. Read paths never rely on this; it only reconciles the
// cached status column.
func (r *Repository) DeactivateLapsed(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&userdm.User{}).
		Where("role = ? AND status = ? AND permission_expires_at IS NOT NULL AND permission_expires_at <= ?",
			userdm.RoleUser, userdm.StatusActive, now).
		Update("status", userdm.StatusInactive)
	return result.RowsAffected, result.Error
}

// Delete removes a user row and everything hanging off it. Audit rows are
// kept but detached from the deleted account so the trail survives.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`UPDATE audit_logs SET user_id = NULL WHERE user_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM user_sessions WHERE user_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM password_reset_tokens WHERE user_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM permission_requests WHERE user_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&userdm.User{}).Error
	})
}
