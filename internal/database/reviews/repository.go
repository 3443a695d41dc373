// Package reviews provides database operations for book reviews.
package reviews

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

var ErrNotFound = errors.New("review not found")

// Ratings are a 1-5 scale.
const (
	MinRating = 1
	MaxRating = 5
)

// Repository handles review database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reviews repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a review. A member may review the same book repeatedly;
// each review is a separate row.
func (r *Repository) Create(userID, bookID uint, rating int, comment string) (*entities.Review, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, fmt.Errorf("rating must be between %d and %d, got %d", MinRating, MaxRating, rating)
	}

	review := &entities.Review{
		UserID:  userID,
		BookID:  bookID,
		Rating:  rating,
		Comment: comment,
	}
	if err := r.db.Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// GetByID retrieves a single review.
func (r *Repository) GetByID(id uint) (*entities.Review, error) {
	var review entities.Review
	err := r.db.First(&review, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// ListForBook returns a book's reviews, newest first.
func (r *Repository) ListForBook(bookID uint) ([]entities.Review, error) {
	var records []entities.Review
	err := r.db.Where("book_id = ?", bookID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// ListForUser returns a member's reviews, newest first.
func (r *Repository) ListForUser(userID uint) ([]entities.Review, error) {
	var records []entities.Review
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// ListAll returns every review, newest first.
func (r *Repository) ListAll() ([]entities.Review, error) {
	var records []entities.Review
	err := r.db.Order("created_at DESC").Find(&records).Error
	return records, err
}

// AverageForBook returns the book's mean rating, zero when unreviewed.
func (r *Repository) AverageForBook(bookID uint) (float64, error) {
	var avg float64
	err := r.db.Model(&entities.Review{}).
		Where("book_id = ?", bookID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	return avg, err
}

// Delete removes a review.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Review{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
