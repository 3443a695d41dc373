package reviews

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_reviews_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Review{},
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

func createBook(t *testing.T, db *gorm.DB, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Author: "Author", Available: true}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestRepository_Create(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")

	review, err := repo.Create(1, book.ID, 5, "A classic")

	require.NoError(t, err)
	assert.NotZero(t, review.ID)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, "A classic", review.Comment)
}

func TestRepository_Create_RatingBounds(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Hyperion")

	_, err := repo.Create(1, book.ID, 0, "")
	assert.Error(t, err)

	_, err = repo.Create(1, book.ID, 6, "")
	assert.Error(t, err)

	_, err = repo.Create(1, book.ID, 1, "")
	assert.NoError(t, err)

	_, err = repo.Create(1, book.ID, 5, "")
	assert.NoError(t, err)
}

func TestRepository_Create_RepeatReviewsAllowed(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Solaris")

	_, err := repo.Create(1, book.ID, 3, "first pass")
	require.NoError(t, err)
	_, err = repo.Create(1, book.ID, 5, "better on reread")
	require.NoError(t, err)

	records, err := repo.ListForBook(book.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRepository_ListForBook(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	reviewed := createBook(t, db, "Neuromancer")
	other := createBook(t, db, "Foundation")

	_, err := repo.Create(1, reviewed.ID, 4, "")
	require.NoError(t, err)
	_, err = repo.Create(2, other.ID, 2, "")
	require.NoError(t, err)

	records, err := repo.ListForBook(reviewed.ID)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].Rating)
}

func TestRepository_ListForUser(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Blindsight")

	_, err := repo.Create(1, book.ID, 4, "")
	require.NoError(t, err)
	_, err = repo.Create(2, book.ID, 2, "")
	require.NoError(t, err)

	records, err := repo.ListForUser(2)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Rating)
}

func TestRepository_AverageForBook(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Roadside Picnic")

	t.Run("no reviews", func(t *testing.T) {
		avg, err := repo.AverageForBook(book.ID)
		require.NoError(t, err)
		assert.Zero(t, avg)
	})

	t.Run("mean of ratings", func(t *testing.T) {
		_, err := repo.Create(1, book.ID, 3, "")
		require.NoError(t, err)
		_, err = repo.Create(2, book.ID, 4, "")
		require.NoError(t, err)

		avg, err := repo.AverageForBook(book.ID)
		require.NoError(t, err)
		assert.InDelta(t, 3.5, avg, 0.001)
	})
}

func TestRepository_Delete(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Echopraxia")
	review, err := repo.Create(1, book.ID, 3, "")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(review.ID))

	_, err = repo.GetByID(review.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Delete_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.Delete(9999)

	assert.ErrorIs(t, err, ErrNotFound)
}
