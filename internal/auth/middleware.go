package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyIsStaff  = "auth_is_staff"
	ContextKeyAuthType = "auth_type" // "session", "bearer", or "none"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// Middleware resolves the caller's identity for every request. API clients
// present a Bearer access token; browsers carry a session cookie.
type Middleware struct {
	tokens         *TokenService
	sessionManager *SessionManager
	publicPaths    map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(tokens *TokenService, sessionManager *SessionManager) *Middleware {
	publicPaths := map[string]bool{
		"/health":            true,
		"/ping":              true,
		"/login":             true,
		"/register":          true,
		"/favicon.ico":       true,
		"/api/register":      true,
		"/api/login":         true,
		"/api/token/refresh": true,
	}

	return &Middleware{
		tokens:         tokens,
		sessionManager: sessionManager,
		publicPaths:    publicPaths,
	}
}

// Handler returns a Gin middleware that attaches the caller's identity to
// the context. It never rejects on its own: unauthenticated requests pass
// through anonymous, and RequireAuth/RequireStaff enforce access per route.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := m.tryBearerAuth(c); claims != nil {
			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyUsername, claims.Username)
			c.Set(ContextKeyIsStaff, claims.IsStaff)
			c.Set(ContextKeyAuthType, AuthTypeBearer)
			c.Next()
			return
		}

		if data := m.sessionManager.GetSessionData(c.Request); data != nil {
			c.Set(ContextKeyUserID, data.UserID)
			c.Set(ContextKeyUsername, data.Username)
			c.Set(ContextKeyIsStaff, data.IsStaff)
			c.Set(ContextKeyAuthType, AuthTypeSession)
			c.Next()
			return
		}

		c.Set(ContextKeyAuthType, AuthTypeNone)
		c.Next()
	}
}

// tryBearerAuth validates an Authorization: Bearer header, if present.
func (m *Middleware) tryBearerAuth(c *gin.Context) *AccessClaims {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	claims, err := m.tokens.ValidateAccessToken(parts[1])
	if err != nil {
		return nil
	}
	return claims
}

// isAPIRequest determines if this is an API request vs web browser request.
func (m *Middleware) isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}

	accept := c.GetHeader("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}

	// A Bearer token attempt, even an invalid one, marks an API client
	if c.GetHeader("Authorization") != "" {
		return true
	}

	return false
}

// IsPublicPath checks if a path should be accessible without authentication.
func (m *Middleware) IsPublicPath(path string) bool {
	if m.publicPaths[path] {
		return true
	}
	if strings.HasPrefix(path, "/static/") {
		return true
	}
	return false
}

// RequireAuth returns a middleware that rejects anonymous requests. API
// clients get 401; browsers are redirected to the login form.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			m.rejectUnauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequireStaff returns a middleware that rejects non-staff callers.
func (m *Middleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			m.rejectUnauthenticated(c)
			return
		}
		if !IsStaff(c) {
			if m.isAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "staff access required",
				})
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}
		c.Next()
	}
}

func (m *Middleware) rejectUnauthenticated(c *gin.Context) {
	if m.isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		return
	}
	c.Redirect(http.StatusFound, "/login?next="+c.Request.URL.Path)
	c.Abort()
}

// Helper functions to extract auth data from Gin context

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// IsStaff reports whether the authenticated user is a staff member.
func IsStaff(c *gin.Context) bool {
	if v, exists := c.Get(ContextKeyIsStaff); exists {
		if isStaff, ok := v.(bool); ok {
			return isStaff
		}
	}
	return false
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated returns true if the request is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != 0
}
