// Package lending implements the borrow/return lifecycle.
//
// The core invariant: a book's available flag is true exactly when no
// unreturned borrow references it. Every flip of the flag happens inside a
// transaction, paired with the borrow write, and is guarded by a
// conditional update so two concurrent borrowers of the last copy cannot
// both succeed. SQLite has no row-level SELECT ... FOR UPDATE, so the
// conditional UPDATE's affected-row count is the arbiter.
package lending

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mlukasik/shelfkeeper/internal/authz"
	"github.com/mlukasik/shelfkeeper/internal/entities"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrBookUnavailable = errors.New("book is not available")
	ErrBorrowNotFound  = errors.New("borrow not found")
	ErrAlreadyReturned = errors.New("borrow already returned")
)

// DefaultLoanPeriodDays is used when the configured loan period is missing.
const DefaultLoanPeriodDays = 14

// Service owns every write to borrows and to the book availability flag.
type Service struct {
	db             *gorm.DB
	loanPeriodDays int
}

// NewService creates a lending service.
func NewService(db *gorm.DB, loanPeriodDays int) *Service {
	if loanPeriodDays <= 0 {
		loanPeriodDays = DefaultLoanPeriodDays
	}
	return &Service{
		db:             db,
		loanPeriodDays: loanPeriodDays,
	}
}

// BorrowBook lends a book to a member. The availability check and the flip
// to unavailable are a single conditional update, so under concurrency
// exactly one caller wins the last copy and the rest get
// ErrBookUnavailable.
//
// Nothing here stops a member from borrowing several copies' worth of the
// same title; the web UI blocks duplicate borrows before calling this, and
// HasActiveBorrow exists for that check.
func (s *Service) BorrowBook(userID, bookID uint) (*entities.Borrow, error) {
	var borrow *entities.Borrow

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("failed to load book: %w", err)
		}

		result := tx.Model(&entities.Book{}).
			Where("id = ? AND available = ?", bookID, true).
			Update("available", false)
		if result.Error != nil {
			return fmt.Errorf("failed to claim book: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrBookUnavailable
		}

		now := time.Now()
		borrow = &entities.Borrow{
			UserID:       userID,
			BookID:       bookID,
			BorrowedDate: now,
			DueDate:      now.AddDate(0, 0, s.loanPeriodDays),
			Returned:     false,
		}
		if err := tx.Create(borrow).Error; err != nil {
			return fmt.Errorf("failed to create borrow: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return borrow, nil
}

// ReturnBook marks a borrow returned and restores the book's availability.
// The actor must be the borrower or staff. Returning twice fails with
// ErrAlreadyReturned; the record's single transition has already happened.
func (s *Service) ReturnBook(actor *entities.User, borrowID uint) (*entities.Borrow, error) {
	var returned *entities.Borrow

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var borrow entities.Borrow
		if err := tx.First(&borrow, borrowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBorrowNotFound
			}
			return fmt.Errorf("failed to load borrow: %w", err)
		}

		if err := authz.Authorize(actor, authz.ActionReturnBook, borrow.UserID); err != nil {
			return err
		}

		result := tx.Model(&entities.Borrow{}).
			Where("id = ? AND returned = ?", borrowID, false).
			Update("returned", true)
		if result.Error != nil {
			return fmt.Errorf("failed to mark borrow returned: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyReturned
		}

		if err := tx.Model(&entities.Book{}).
			Where("id = ?", borrow.BookID).
			Update("available", true).Error; err != nil {
			return fmt.Errorf("failed to restore availability: %w", err)
		}

		borrow.Returned = true
		returned = &borrow
		return nil
	})
	if err != nil {
		return nil, err
	}

	return returned, nil
}

// HasActiveBorrow reports whether the member currently holds the book.
func (s *Service) HasActiveBorrow(userID, bookID uint) (bool, error) {
	var count int64
	err := s.db.Model(&entities.Borrow{}).
		Where("user_id = ? AND book_id = ? AND returned = ?", userID, bookID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Statistics is an aggregate snapshot of the library.
type Statistics struct {
	TotalBooks        int64 `json:"total_books"`
	AvailableBooks    int64 `json:"available_books"`
	BorrowedBooks     int64 `json:"borrowed_books"`
	TotalBorrows      int64 `json:"total_borrows"`
	ActiveBorrows     int64 `json:"active_borrows"`
	OverdueBorrows    int64 `json:"overdue_borrows"`
	TotalUsers        int64 `json:"total_users"`
	TotalReservations int64 `json:"total_reservations"`
	TotalReviews      int64 `json:"total_reviews"`
}

// Statistics computes the aggregate counters. Handlers restrict it to
// staff.
func (s *Service) Statistics() (*Statistics, error) {
	var stats Statistics

	type counter struct {
		dest  *int64
		query *gorm.DB
	}

	counters := []counter{
		{&stats.TotalBooks, s.db.Model(&entities.Book{})},
		{&stats.AvailableBooks, s.db.Model(&entities.Book{}).Where("available = ?", true)},
		{&stats.BorrowedBooks, s.db.Model(&entities.Book{}).Where("available = ?", false)},
		{&stats.TotalBorrows, s.db.Model(&entities.Borrow{})},
		{&stats.ActiveBorrows, s.db.Model(&entities.Borrow{}).Where("returned = ?", false)},
		{&stats.OverdueBorrows, s.db.Model(&entities.Borrow{}).Where("returned = ? AND due_date < ?", false, time.Now())},
		{&stats.TotalUsers, s.db.Model(&entities.User{})},
		{&stats.TotalReservations, s.db.Model(&entities.Reservation{})},
		{&stats.TotalReviews, s.db.Model(&entities.Review{})},
	}

	for _, c := range counters {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute statistics: %w", err)
		}
	}

	return &stats, nil
}
