package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/studymatch/backend/internal/core/datamodel/user"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *user.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *SessionRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*user.Session, error) {
	var session user.Session
	err := r.db.WithContext(ctx).
		Where("token_fingerprint = ?", fingerprint).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session not found")
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	return r.db.WithContext(ctx).
		Where("token_fingerprint = ?", fingerprint).
		Delete(&user.Session{}).Error
}

func (r *SessionRepository) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&user.Session{})
	return result.RowsAffected, result.Error
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&user.Session{})
	return result.RowsAffected, result.Error
}
