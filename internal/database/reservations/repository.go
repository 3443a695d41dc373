// Package reservations provides database operations for book reservations.
package reservations

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

var ErrNotFound = errors.New("reservation not found")

// Repository handles reservation database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reservations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create records a member's interest in a book. Reservations carry no
// uniqueness or availability constraint, so a borrowed book can be reserved.
func (r *Repository) Create(userID, bookID uint) (*entities.Reservation, error) {
	reservation := &entities.Reservation{
		UserID:       userID,
		BookID:       bookID,
		ReservedDate: time.Now(),
	}
	if err := r.db.Create(reservation).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

// GetByID retrieves a reservation with its book preloaded.
func (r *Repository) GetByID(id uint) (*entities.Reservation, error) {
	var reservation entities.Reservation
	err := r.db.Preload("Book").First(&reservation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// ListForUser returns a member's reservations, newest first.
func (r *Repository) ListForUser(userID uint) ([]entities.Reservation, error) {
	var records []entities.Reservation
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("reserved_date DESC").
		Find(&records).Error
	return records, err
}

// ListAll returns every reservation, newest first.
func (r *Repository) ListAll() ([]entities.Reservation, error) {
	var records []entities.Reservation
	err := r.db.Preload("Book").Order("reserved_date DESC").Find(&records).Error
	return records, err
}

// Delete cancels a reservation.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Reservation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
