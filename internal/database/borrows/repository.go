// Package borrows provides read access to borrow records.
//
// Creating a borrow and marking it returned go through the lending
// service, which pairs those writes with the book's available flag in a
// single transaction. Nothing here writes.
package borrows

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

var ErrNotFound = errors.New("borrow not found")

// Repository handles borrow record queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new borrows repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a borrow with its book preloaded.
func (r *Repository) GetByID(id uint) (*entities.Borrow, error) {
	var borrow entities.Borrow
	err := r.db.Preload("Book").First(&borrow, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &borrow, nil
}

// ListForUser returns a member's borrows, newest first. With activeOnly set
// only unreturned loans are included.
func (r *Repository) ListForUser(userID uint, activeOnly bool) ([]entities.Borrow, error) {
	query := r.db.Preload("Book").Where("user_id = ?", userID)
	if activeOnly {
		query = query.Where("returned = ?", false)
	}

	var records []entities.Borrow
	err := query.Order("borrowed_date DESC").Find(&records).Error
	return records, err
}

// ListAll returns every borrow record, newest first. Staff only at the
// handler level.
func (r *Repository) ListAll() ([]entities.Borrow, error) {
	var records []entities.Borrow
	err := r.db.Preload("Book").Order("borrowed_date DESC").Find(&records).Error
	return records, err
}

// GetActiveForUserAndBook returns the member's unreturned borrow of a book,
// or ErrNotFound when the member doesn't currently hold it.
func (r *Repository) GetActiveForUserAndBook(userID, bookID uint) (*entities.Borrow, error) {
	var borrow entities.Borrow
	err := r.db.
		Where("user_id = ? AND book_id = ? AND returned = ?", userID, bookID, false).
		First(&borrow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &borrow, nil
}
