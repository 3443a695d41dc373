package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/audit"
	"github.com/mlukasik/shelfkeeper/internal/auth"
	"github.com/mlukasik/shelfkeeper/internal/config"
	"github.com/mlukasik/shelfkeeper/internal/database"
	auditrepo "github.com/mlukasik/shelfkeeper/internal/database/audit"
	"github.com/mlukasik/shelfkeeper/internal/database/books"
	"github.com/mlukasik/shelfkeeper/internal/database/borrows"
	"github.com/mlukasik/shelfkeeper/internal/database/reservations"
	"github.com/mlukasik/shelfkeeper/internal/database/reviews"
	"github.com/mlukasik/shelfkeeper/internal/database/tokens"
	http_controllers "github.com/mlukasik/shelfkeeper/internal/http"
	"github.com/mlukasik/shelfkeeper/internal/lending"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM. SIGKILL can't be caught.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// secretBytes interprets a configured secret as hex when possible,
// falling back to raw bytes, and generates one when unset.
func secretBytes(configured, envHint string) []byte {
	if configured != "" {
		if decoded, err := hex.DecodeString(configured); err == nil {
			return decoded
		}
		return []byte(configured)
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}
	log.Printf("Generated ephemeral secret (set %s to persist across restarts)", envHint)
	decoded, _ := hex.DecodeString(secret)
	return decoded
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfkeeper v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories
	booksRepo := books.NewRepository(db.DB)
	borrowsRepo := borrows.NewRepository(db.DB)
	reservationsRepo := reservations.NewRepository(db.DB)
	reviewsRepo := reviews.NewRepository(db.DB)
	tokensRepo := tokens.NewRepository(db.DB)
	auditRepo := auditrepo.NewRepository(db.DB)

	// Services
	lendingService := lending.NewService(db.DB, cfg.Lending.LoanPeriodDays)
	auditor := audit.NewService(auditRepo)

	authService := auth.NewService(db.DB, cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}

	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = string(secretBytes("", "AUTH_JWT_SECRET"))
	}
	tokenService := auth.NewTokenService(authService, tokensRepo, cfg.Auth)

	authMiddleware := auth.NewMiddleware(tokenService, sessionManager)
	loginLimiter := auth.NewLoginLimiter(cfg.Auth.MaxLoginAttempts, cfg.Auth.RateLimitWindow, cfg.Auth.LockoutDuration)

	csrfSecret := secretBytes(cfg.Auth.SessionSecret, "AUTH_SESSION_SECRET")

	// Startup housekeeping instead of in-process schedulers: an external
	// cron restarting or curling the binary keeps these bounded.
	if pruned, err := tokenService.PruneExpired(); err != nil {
		log.Printf("WARNING: Failed to prune expired refresh tokens: %v", err)
	} else if pruned > 0 {
		log.Printf("Pruned %d expired refresh tokens", pruned)
	}
	if pruned, err := auditor.PruneOlderThan(cfg.Audit.RetentionDays); err != nil {
		log.Printf("WARNING: Failed to prune audit events: %v", err)
	} else if pruned > 0 {
		log.Printf("Pruned %d audit events older than %d days", pruned, cfg.Audit.RetentionDays)
	}

	if hasUsers, _ := authService.HasUsers(); !hasUsers {
		log.Printf("No users found. Visit /register or run 'shelfkeeper create-admin' to create accounts.")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Lending:        lendingService,
		Auditor:        auditor,
		Books:          booksRepo,
		Borrows:        borrowsRepo,
		Reservations:   reservationsRepo,
		Reviews:        reviewsRepo,
		AuditEvents:    auditRepo,
		AuthService:    authService,
		TokenService:   tokenService,
		SessionManager: sessionManager,
		AuthMiddleware: authMiddleware,
		LoginLimiter:   loginLimiter,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		LendingConfig:  cfg.Lending,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Let in-flight audit writes land before the process exits.
	onShutdown := func(ctx context.Context) {
		auditor.Wait()
	}

	Serve(router, cfg, onShutdown)
}
