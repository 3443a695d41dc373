package auth

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

	"github.com/mlukasik/shelfkeeper/internal/config"
	"github.com/mlukasik/shelfkeeper/internal/database/tokens"
	"github.com/mlukasik/shelfkeeper/internal/entities"
)

func setupTokenTest(t *testing.T, cfg config.Auth) (*TokenService, *Service, func()) {
	dbPath := "./test_tokens_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.RefreshToken{}))

	users := NewService(db, cfg)
	ts := NewTokenService(users, tokens.NewRepository(db), cfg)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return ts, users, cleanup
}

func tokenTestConfig() config.Auth {
	return config.Auth{
		BcryptCost:      4,
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	ts, users, cleanup := setupTokenTest(t, tokenTestConfig())
	defer cleanup()

	user, err := users.CreateUser("alice", "alice@example.com", "password123", true)
	require.NoError(t, err)

	access, refresh, err := ts.IssueTokenPair(user)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	claims, err := ts.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsStaff)
}

func TestTokenService_ValidateAccessToken_Garbage(t *testing.T) {
	ts, _, cleanup := setupTokenTest(t, tokenTestConfig())
	defer cleanup()

	_, err := ts.ValidateAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ValidateAccessToken_WrongSecret(t *testing.T) {
	ts, users, cleanup := setupTokenTest(t, tokenTestConfig())
	defer cleanup()

	otherCfg := tokenTestConfig()
	otherCfg.JWTSecret = "different-secret"
	other := NewTokenService(users, nil, otherCfg)

	user, err := users.CreateUser("alice", "alice@example.com", "password123", false)
	require.NoError(t, err)

	access, err := other.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = ts.ValidateAccessToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ValidateAccessToken_Expired(t *testing.T) {
	cfg := tokenTestConfig()
	cfg.AccessTokenTTL = -time.Minute
	ts, users, cleanup := setupTokenTest(t, cfg)
	defer cleanup()

	user, err := users.CreateUser("alice", "alice@example.com", "password123", false)
	require.NoError(t, err)

	access, err := ts.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = ts.ValidateAccessToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_RefreshAccessToken(t *testing.T) {
	ts, users, cleanup := setupTokenTest(t, tokenTestConfig())
	defer cleanup()

	user, err := users.CreateUser("alice", "alice@example.com", "password123", false)
	require.NoError(t, err)

	_, refresh, err := ts.IssueTokenPair(user)
	require.NoError(t, err)

	access, err := ts.RefreshAccessToken(refresh)
	require.NoError(t, err)

	claims, err := ts.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestTokenService_RefreshAccessToken_Unknown(t *testing.T) {
	ts, _, cleanup := setupTokenTest(t, tokenTestConfig())
	defer cleanup()

	_, err := ts.RefreshAccessToken(uuid.New().String())
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RefreshAccessToken_Expired(t *testing.T) {
	cfg := tokenTestConfig()
	cfg.RefreshTokenTTL = -time.Hour
	ts, users, cleanup := setupTokenTest(t, cfg)
	defer cleanup()

	user, err := users.CreateUser("alice", "alice@example.com", "password123", false)
	require.NoError(t, err)

	_, refresh, err := ts.IssueTokenPair(user)
	require.NoError(t, err)

	_, err = ts.RefreshAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// The expired token was deleted, so a retry is invalid rather than expired
	_, err = ts.RefreshAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RevokeRefreshTokens(t *testing.T) {
	ts, users, cleanup := setupTokenTest(t, tokenTestConfig())
	defer cleanup()

	user, err := users.CreateUser("alice", "alice@example.com", "password123", false)
	require.NoError(t, err)

	_, refresh, err := ts.IssueTokenPair(user)
	require.NoError(t, err)

	require.NoError(t, ts.RevokeRefreshTokens(user.ID))

	_, err = ts.RefreshAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
