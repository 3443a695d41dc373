package auth

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/config"
)

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	if strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// AuthController serves the login and registration pages and handles their
// form submissions. Registration is open: anyone may create a member
// account, and accounts created here are never staff.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	config         config.Auth
	limiter        *LoginLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, templatesPath string, cfg config.Auth) (*AuthController, error) {
	pattern := filepath.Join(templatesPath, "auth", "*.html")
	tmpl, err := template.ParseGlob(pattern)
	if err != nil {
		// Templates might not exist yet, create controller without them
		tmpl = nil
	}

	limiter := NewLoginLimiter(cfg.MaxLoginAttempts, cfg.RateLimitWindow, cfg.LockoutDuration)

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		config:         cfg,
		limiter:        limiter,
	}, nil
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout) // Support GET for simple logout links
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if ac.sessionManager != nil && ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	next := sanitizeRedirectPath(c.Query("next"))

	ac.renderTemplate(c, "login.html", gin.H{
		"Title":     "Login",
		"Next":      next,
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	// Check rate limiting before attempting authentication
	allowed, retryAfter := ac.limiter.Allow(clientIP, username)
	if !allowed {
		c.Header("Retry-After", retryAfter.String())
		ac.renderTemplate(c, "login.html", gin.H{
			"Title":      "Login",
			"Next":       next,
			"Username":   username,
			"CSRFToken":  GetCSRFToken(c),
			"Error":      "Too many login attempts. Please try again later.",
			"RetryAfter": retryAfter.String(),
		})
		return
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		ac.limiter.RecordFailure(clientIP, username)

		errorMsg := "Invalid username or password"
		if errors.Is(err, ErrAccountLocked) {
			errorMsg = "Account is locked. Please try again later."
		}

		ac.renderTemplate(c, "login.html", gin.H{
			"Title":     "Login",
			"Next":      next,
			"Username":  username,
			"CSRFToken": GetCSRFToken(c),
			"Error":     errorMsg,
		})
		return
	}

	ac.limiter.RecordSuccess(clientIP, username)

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			ac.renderTemplate(c, "login.html", gin.H{
				"Title":     "Login",
				"Next":      next,
				"Username":  username,
				"CSRFToken": GetCSRFToken(c),
				"Error":     "Failed to create session",
			})
			return
		}
	}

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and redirects to login.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	c.Redirect(http.StatusFound, "/login")
}

// RegisterPage renders the member registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	if ac.sessionManager != nil && ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.renderTemplate(c, "register.html", gin.H{
		"Title":     "Register",
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Register handles the registration form submission and logs the new
// member in on success.
func (ac *AuthController) Register(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirmPassword := c.PostForm("confirm_password")

	renderError := func(msg string) {
		ac.renderTemplate(c, "register.html", gin.H{
			"Title":     "Register",
			"Username":  username,
			"Email":     email,
			"CSRFToken": GetCSRFToken(c),
			"Error":     msg,
		})
	}

	if password != confirmPassword {
		renderError("Passwords do not match")
		return
	}

	user, err := ac.service.CreateUser(username, email, password, false)
	if err != nil {
		errorMsg := "Failed to create account"
		switch {
		case errors.Is(err, ErrPasswordTooShort):
			errorMsg = "Password must be at least 8 characters"
		case errors.Is(err, ErrPasswordTooLong):
			errorMsg = "Password exceeds maximum length of 72 characters"
		case errors.Is(err, ErrUsernameRequired):
			errorMsg = "Username is required"
		case errors.Is(err, ErrUsernameInvalid):
			errorMsg = "Username must be 3-64 characters, alphanumeric with underscore/hyphen only"
		case errors.Is(err, ErrEmailRequired):
			errorMsg = "Email is required"
		case errors.Is(err, ErrEmailInvalid):
			errorMsg = "Invalid email format"
		case errors.Is(err, ErrPasswordRequired):
			errorMsg = "Password is required"
		case errors.Is(err, ErrUserExists):
			errorMsg = "Username or email is already taken"
		}
		renderError(errorMsg)
		return
	}

	if ac.sessionManager != nil {
		_ = ac.sessionManager.CreateSession(c.Request, user)
	}

	c.Redirect(http.StatusFound, "/")
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}
