package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/audit"
	"github.com/mlukasik/shelfkeeper/internal/auth"
)

// AuthAPIController serves token-based authentication for API clients.
type AuthAPIController struct {
	users   *auth.Service
	tokens  *auth.TokenService
	limiter *auth.LoginLimiter
	auditor *audit.Service
}

func NewAuthAPIController(users *auth.Service, tokens *auth.TokenService, limiter *auth.LoginLimiter, auditor *audit.Service) *AuthAPIController {
	return &AuthAPIController{
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		auditor: auditor,
	}
}

// RegisterInput is the payload for POST /api/register.
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /api/register. Accounts created here are always
// plain members, and the supplied password is the credential that gets
// hashed and stored.
func (controller *AuthAPIController) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "username, email and password are required")
		return
	}

	user, err := controller.users.CreateUser(input.Username, input.Email, input.Password, false)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			respondBadRequest(c, "username or email is already taken")
			return
		}
		respondBadRequest(c, err.Error())
		return
	}

	respondCreated(c, user)
}

// LoginInput is the payload for POST /api/login.
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/login and returns an access/refresh token pair.
func (controller *AuthAPIController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	clientIP := c.ClientIP()
	allowed, retryAfter := controller.limiter.Allow(clientIP, input.Username)
	if !allowed {
		c.Header("Retry-After", retryAfter.String())
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many login attempts"})
		return
	}

	user, err := controller.users.Authenticate(input.Username, input.Password)
	if err != nil {
		controller.limiter.RecordFailure(clientIP, input.Username)
		controller.auditor.LogAuth(0, "api_login", clientIP, false)

		if errors.Is(err, auth.ErrAccountLocked) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "account is locked"})
			return
		}
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	controller.limiter.RecordSuccess(clientIP, input.Username)
	controller.auditor.LogAuth(user.ID, "api_login", clientIP, true)

	access, refresh, err := controller.tokens.IssueTokenPair(user)
	if err != nil {
		respondInternalError(c, err, "issue tokens")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

// RefreshInput is the payload for POST /api/token/refresh.
type RefreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /api/token/refresh and returns a new access token.
func (controller *AuthAPIController) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "refresh_token is required")
		return
	}

	access, err := controller.tokens.RefreshAccessToken(input.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

// Logout handles POST /api/logout: it revokes every refresh token the
// caller holds. The current access token stays valid until it expires.
func (controller *AuthAPIController) Logout(c *gin.Context) {
	if err := controller.tokens.RevokeRefreshTokens(GetUserID(c)); err != nil {
		respondInternalError(c, err, "revoke tokens")
		return
	}
	respondSuccess(c, "logged out")
}
