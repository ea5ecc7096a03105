package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yashrajoria/management-backend/models"
	"gorm.io/gorm"
)

var ErrTokenAlreadyUsed = errors.New("password reset token already used")

type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	FindValid(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordResetToken, error)
	Consume(ctx context.Context, tokenHash string) error
	InvalidateForUser(ctx context.Context, userID uint) error
}

type GormPasswordResetRepository struct {
	db *gorm.DB
}

func NewGormPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &GormPasswordResetRepository{db: db}
}

func (r *GormPasswordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindValid returns the unused, unexpired token with the given hash.
func (r *GormPasswordResetRepository) FindValid(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND used = ? AND expires_at > ?", tokenHash, false, now).
		First(&token).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

// Consume marks the token used. Of two concurrent resets with the same token
// only one succeeds; the other gets ErrTokenAlreadyUsed.
func (r *GormPasswordResetRepository) Consume(ctx context.Context, tokenHash string) error {
	result := r.db.WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("token_hash = ? AND used = ?", tokenHash, false).
		Update("used", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenAlreadyUsed
	}
	return nil
}

func (r *GormPasswordResetRepository) InvalidateForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("user_id = ? AND used = ?", userID, false).
		Update("used", true).Error
}
