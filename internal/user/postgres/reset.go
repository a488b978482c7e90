package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	userdm "github.com/studymatch/backend/internal/core/datamodel/user"
)

type ResetTokenRepository struct {
	db *gorm.DB
}

func NewResetTokenRepository(db *gorm.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, token *userdm.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *ResetTokenRepository) GetValid(ctx context.Context, tokenHash string, now time.Time) (*userdm.PasswordResetToken, error) {
	var token userdm.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reset token not found")
		}
		return nil, err
	}
	return &token, nil
}

func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userdm.PasswordResetToken{}).
		Where("id = ?", id).
		Update("used_at", at).Error
}

func (r *ResetTokenRepository) PurgeForUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&userdm.PasswordResetToken{}).Error
}
