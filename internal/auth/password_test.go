package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123", bcrypt.MinCost)

	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)

	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 73), bcrypt.MinCost)

	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("password123", hash))
	assert.ErrorIs(t, CheckPassword("wrong-password", hash), ErrInvalidPassword)
}

func TestGenerateSessionSecret(t *testing.T) {
	first, err := GenerateSessionSecret()
	require.NoError(t, err)
	assert.Len(t, first, 64) // 32 bytes hex encoded

	second, err := GenerateSessionSecret()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
