// Package tokens provides database operations for API refresh tokens.
package tokens

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

var ErrNotFound = errors.New("refresh token not found")

// Repository handles refresh token database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tokens repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores an opaque refresh token for a user.
func (r *Repository) Create(userID uint, token string, expiresAt time.Time) (*entities.RefreshToken, error) {
	record := &entities.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := r.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByToken looks up a refresh token by its opaque value.
func (r *Repository) FindByToken(token string) (*entities.RefreshToken, error) {
	var record entities.RefreshToken
	err := r.db.Where("token = ?", token).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Delete removes a single refresh token, typically on rotation or expiry.
func (r *Repository) Delete(id uint) error {
	return r.db.Delete(&entities.RefreshToken{}, id).Error
}

// DeleteForUser revokes all of a user's refresh tokens.
func (r *Repository) DeleteForUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&entities.RefreshToken{}).Error
}

// DeleteExpired prunes tokens past their expiry. Returns rows removed.
func (r *Repository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", now).Delete(&entities.RefreshToken{})
	return result.RowsAffected, result.Error
}
