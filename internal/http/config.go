package http

import (
	"github.com/mlukasik/shelfkeeper/internal/audit"
	"github.com/mlukasik/shelfkeeper/internal/auth"
	"github.com/mlukasik/shelfkeeper/internal/config"
	"github.com/mlukasik/shelfkeeper/internal/database"
	auditrepo "github.com/mlukasik/shelfkeeper/internal/database/audit"
	"github.com/mlukasik/shelfkeeper/internal/database/books"
	"github.com/mlukasik/shelfkeeper/internal/database/borrows"
	"github.com/mlukasik/shelfkeeper/internal/database/reservations"
	"github.com/mlukasik/shelfkeeper/internal/database/reviews"
	"github.com/mlukasik/shelfkeeper/internal/lending"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces the long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Lending  *lending.Service
	Auditor  *audit.Service

	// Repositories
	Books        *books.Repository
	Borrows      *borrows.Repository
	Reservations *reservations.Repository
	Reviews      *reviews.Repository
	AuditEvents  *auditrepo.Repository

	// Authentication
	AuthService    *auth.Service
	TokenService   *auth.TokenService
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	LoginLimiter   *auth.LoginLimiter
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// Lending policy
	LendingConfig config.Lending

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string
}
