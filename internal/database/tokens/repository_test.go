package tokens

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_tokens_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.RefreshToken{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	token := uuid.New().String()
	created, err := repo.Create(1, token, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := repo.FindByToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), found.UserID)
	assert.Equal(t, created.ID, found.ID)
}

func TestRepository_FindByToken_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.FindByToken(uuid.New().String())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Delete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	token := uuid.New().String()
	created, err := repo.Create(1, token, time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(created.ID))

	_, err = repo.FindByToken(token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_DeleteForUser(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	mine := uuid.New().String()
	other := uuid.New().String()
	_, err := repo.Create(1, mine, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(2, other, time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteForUser(1))

	_, err = repo.FindByToken(mine)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByToken(other)
	assert.NoError(t, err, "other users' tokens survive")
}

func TestRepository_DeleteExpired(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	expired := uuid.New().String()
	live := uuid.New().String()
	_, err := repo.Create(1, expired, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(1, live, time.Now().Add(time.Hour))
	require.NoError(t, err)

	removed, err := repo.DeleteExpired(time.Now())

	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	_, err = repo.FindByToken(live)
	assert.NoError(t, err)
}
