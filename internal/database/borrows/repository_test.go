package borrows

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_borrows_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Borrow{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, db, cleanup
}

func createBorrow(t *testing.T, db *gorm.DB, userID, bookID uint, borrowed time.Time, returned bool) *entities.Borrow {
	t.Helper()
	borrow := &entities.Borrow{
		UserID:       userID,
		BookID:       bookID,
		BorrowedDate: borrowed,
		DueDate:      borrowed.AddDate(0, 0, 14),
		Returned:     returned,
	}
	require.NoError(t, db.Create(borrow).Error)
	return borrow
}

func TestRepository_GetByID(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, db.Create(book).Error)
	borrow := createBorrow(t, db, 1, book.ID, time.Now(), false)

	found, err := repo.GetByID(borrow.ID)

	require.NoError(t, err)
	assert.Equal(t, uint(1), found.UserID)
	assert.Equal(t, "Dune", found.Book.Title, "book should be preloaded")
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetByID(9999)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListForUser(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{Title: "Hyperion", Author: "Dan Simmons"}
	require.NoError(t, db.Create(book).Error)

	now := time.Now()
	createBorrow(t, db, 1, book.ID, now.AddDate(0, 0, -30), true)
	createBorrow(t, db, 1, book.ID, now, false)
	createBorrow(t, db, 2, book.ID, now, false)

	t.Run("all records for member", func(t *testing.T) {
		records, err := repo.ListForUser(1, false)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.False(t, records[0].Returned, "newest first")
		assert.True(t, records[1].Returned)
	})

	t.Run("active only", func(t *testing.T) {
		records, err := repo.ListForUser(1, true)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.False(t, records[0].Returned)
	})

	t.Run("member with no borrows", func(t *testing.T) {
		records, err := repo.ListForUser(99, false)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestRepository_ListAll(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{Title: "Solaris", Author: "Stanislaw Lem"}
	require.NoError(t, db.Create(book).Error)
	createBorrow(t, db, 1, book.ID, time.Now(), false)
	createBorrow(t, db, 2, book.ID, time.Now(), true)

	records, err := repo.ListAll()

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRepository_GetActiveForUserAndBook(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{Title: "Neuromancer", Author: "William Gibson"}
	require.NoError(t, db.Create(book).Error)

	t.Run("no active borrow", func(t *testing.T) {
		_, err := repo.GetActiveForUserAndBook(1, book.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returned borrow doesn't count", func(t *testing.T) {
		createBorrow(t, db, 1, book.ID, time.Now().AddDate(0, 0, -20), true)
		_, err := repo.GetActiveForUserAndBook(1, book.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("active borrow found", func(t *testing.T) {
		active := createBorrow(t, db, 1, book.ID, time.Now(), false)
		found, err := repo.GetActiveForUserAndBook(1, book.ID)
		require.NoError(t, err)
		assert.Equal(t, active.ID, found.ID)
	})
}
