package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mlukasik/shelfkeeper/internal/config"
	"github.com/mlukasik/shelfkeeper/internal/database/tokens"
	"github.com/mlukasik/shelfkeeper/internal/entities"
)

// AccessClaims is what a validated API access token asserts about the caller.
type AccessClaims struct {
	UserID   uint
	Username string
	IsStaff  bool
}

// TokenService issues and validates API tokens. Access tokens are short-lived
// signed JWTs; refresh tokens are opaque values stored server-side so they
// can be revoked.
type TokenService struct {
	users      *Service
	tokens     *tokens.Repository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a token service from the auth configuration.
func NewTokenService(users *Service, tokenRepo *tokens.Repository, cfg config.Auth) *TokenService {
	return &TokenService{
		users:      users,
		tokens:     tokenRepo,
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

// IssueTokenPair returns a fresh access token and a stored refresh token for
// a user who just proved their credentials.
func (ts *TokenService) IssueTokenPair(user *entities.User) (accessToken, refreshToken string, err error) {
	accessToken, err = ts.GenerateAccessToken(user)
	if err != nil {
		return "", "", err
	}

	record, err := ts.tokens.Create(user.ID, uuid.New().String(), time.Now().Add(ts.refreshTTL))
	if err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return accessToken, record.Token, nil
}

// GenerateAccessToken signs a short-lived JWT for the user.
func (ts *TokenService) GenerateAccessToken(user *entities.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"is_staff": user.IsStaff,
		"exp":      now.Add(ts.accessTTL).Unix(),
		"iat":      now.Unix(),
		"type":     "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// ValidateAccessToken parses and verifies an access token string.
func (ts *TokenService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, ErrInvalidToken
	}
	username, _ := claims["username"].(string)
	isStaff, _ := claims["is_staff"].(bool)

	return &AccessClaims{
		UserID:   uint(userID),
		Username: username,
		IsStaff:  isStaff,
	}, nil
}

// RefreshAccessToken exchanges a stored refresh token for a new access
// token. Expired refresh tokens are removed on sight.
func (ts *TokenService) RefreshAccessToken(refreshToken string) (string, error) {
	record, err := ts.tokens.FindByToken(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}

	if time.Now().After(record.ExpiresAt) {
		_ = ts.tokens.Delete(record.ID)
		return "", ErrTokenExpired
	}

	user, err := ts.users.GetUserByID(record.UserID)
	if err != nil {
		return "", ErrInvalidToken
	}

	return ts.GenerateAccessToken(user)
}

// RevokeRefreshTokens invalidates every refresh token a user holds.
func (ts *TokenService) RevokeRefreshTokens(userID uint) error {
	return ts.tokens.DeleteForUser(userID)
}

// PruneExpired removes refresh tokens past their expiry. Called once at
// startup; there is no background scheduler.
func (ts *TokenService) PruneExpired() (int64, error) {
	return ts.tokens.DeleteExpired(time.Now())
}
