// Package books provides database operations for the book catalog.
//
// Availability is never mutated here: the lending service owns the
// available flag. This package covers catalog CRUD and the read side
// (search, filters, ordering, average rating).
package books

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

var ErrNotFound = errors.New("book not found")

// Ordering values accepted by List. Anything else falls back to primary key
// order so user input can't reach the SQL ORDER BY clause directly.
var orderings = map[string]string{
	"title":   "books.title ASC",
	"-title":  "books.title DESC",
	"author":  "books.author ASC",
	"-author": "books.author DESC",
}

// ListOptions narrows and orders the catalog listing.
type ListOptions struct {
	Search    string // matches title, author, isbn or description
	Author    string
	Available *bool
	Ordering  string // "title", "-title", "author", "-author"
}

// BookWithRating is a catalog row with the review average attached.
type BookWithRating struct {
	entities.Book
	AverageRating float64 `json:"average_rating"`
}

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create adds a book to the catalog. New books start available.
func (r *Repository) Create(book *entities.Book) error {
	book.Available = true
	return r.db.Create(book).Error
}

// GetByID retrieves a single book.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetByIDWithRating retrieves a single book with its review average.
func (r *Repository) GetByIDWithRating(id uint) (*BookWithRating, error) {
	book, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	var avg float64
	err = r.db.Model(&entities.Review{}).
		Where("book_id = ?", id).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}

	return &BookWithRating{Book: *book, AverageRating: avg}, nil
}

// List returns catalog rows matching the options, each with its review
// average.
func (r *Repository) List(opts ListOptions) ([]BookWithRating, error) {
	query := r.db.Model(&entities.Book{}).
		Select("books.*, COALESCE(AVG(reviews.rating), 0) AS average_rating").
		Joins("LEFT JOIN reviews ON reviews.book_id = books.id").
		Group("books.id")

	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where(
			"LOWER(books.title) LIKE LOWER(?) OR LOWER(books.author) LIKE LOWER(?) OR books.isbn LIKE ? OR LOWER(books.description) LIKE LOWER(?)",
			pattern, pattern, pattern, pattern,
		)
	}
	if opts.Author != "" {
		query = query.Where("books.author = ?", opts.Author)
	}
	if opts.Available != nil {
		query = query.Where("books.available = ?", *opts.Available)
	}

	if order, ok := orderings[opts.Ordering]; ok {
		query = query.Order(order)
	} else {
		query = query.Order("books.id ASC")
	}

	var rows []BookWithRating
	err := query.Scan(&rows).Error
	return rows, err
}

// ListAvailable returns up to limit available books, newest first. Used by
// the home page.
func (r *Repository) ListAvailable(limit int) ([]entities.Book, error) {
	var books []entities.Book
	query := r.db.Where("available = ?", true).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&books).Error
	return books, err
}

// Update saves catalog fields of an existing book. The available flag is
// deliberately excluded so a stale payload cannot undo a borrow.
func (r *Repository) Update(book *entities.Book) error {
	result := r.db.Model(&entities.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]any{
			"title":       book.Title,
			"author":      book.Author,
			"isbn":        book.ISBN,
			"description": book.Description,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a book from the catalog.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
