package http

import (
	"html/template"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.TokenService))
	}

	// Session runs after CSRF so session context isn't overwritten by
	// CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	router.Use(cfg.AuthMiddleware.Handler())

	// Inject auth data for templates
	router.Use(AuthContextMiddleware())

	if cfg.TemplatesPath != "" {
		tmpl := template.Must(template.New("").ParseGlob(cfg.TemplatesPath + "/*.html"))
		router.SetHTMLTemplate(tmpl)
	}
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	// Login, logout and registration pages
	authController, err := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig)
	if err != nil {
		log.Printf("Warning: auth templates unavailable, falling back to JSON responses: %v", err)
	}
	authController.RegisterRoutes(router)

	booksController := NewBooksController(cfg.Books, cfg.Auditor)
	borrowsController := NewBorrowsController(cfg.Lending, cfg.Borrows, cfg.AuthService, cfg.Auditor)
	reservationsController := NewReservationsController(cfg.Reservations, cfg.Books)
	reviewsController := NewReviewsController(cfg.Reviews, cfg.Books)
	authAPIController := NewAuthAPIController(cfg.AuthService, cfg.TokenService, cfg.LoginLimiter, cfg.Auditor)
	profileController := NewProfileController(cfg.AuthService, cfg.Borrows, cfg.Reservations, cfg.Reviews)
	statisticsController := NewStatisticsController(cfg.Lending, cfg.AuditEvents)
	healthController := NewHealthController(cfg.Database, cfg.Version)

	// Unauthenticated endpoints
	router.GET("/health", healthController.Status)
	router.GET("/ping", Ping)
	router.POST("/api/register", authAPIController.Register)
	router.POST("/api/login", authAPIController.Login)
	router.POST("/api/token/refresh", authAPIController.Refresh)

	// Catalog reads are open to anonymous API clients
	router.GET("/api/books", booksController.ListBooks)
	router.GET("/api/books/:id", booksController.GetBook)
	router.GET("/api/books/:id/reviews", reviewsController.ListBookReviews)

	// API routes for authenticated members
	api := router.Group("/api", cfg.AuthMiddleware.RequireAuth())
	{
		api.GET("/borrows", borrowsController.ListBorrows)
		api.POST("/borrows", borrowsController.CreateBorrow)
		api.POST("/return/:id", borrowsController.ReturnBorrow)

		api.GET("/reservations", reservationsController.ListReservations)
		api.POST("/reservations", reservationsController.CreateReservation)
		api.DELETE("/reservations/:id", reservationsController.CancelReservation)

		api.GET("/reviews", reviewsController.ListReviews)
		api.POST("/reviews", reviewsController.CreateReview)
		api.DELETE("/reviews/:id", reviewsController.DeleteReview)

		api.GET("/profile", profileController.GetProfile)
		api.POST("/profile/password", profileController.ChangePassword)
		api.POST("/logout", authAPIController.Logout)
	}

	// Catalog management and reporting are staff only
	staff := router.Group("/api", cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireStaff())
	{
		staff.POST("/books", booksController.CreateBook)
		staff.PUT("/books/:id", booksController.UpdateBook)
		staff.DELETE("/books/:id", booksController.DeleteBook)

		staff.GET("/statistics", statisticsController.GetStatistics)
		staff.GET("/audit", statisticsController.ListAuditEvents)
	}

	// HTML pages
	uiController := NewUIController(
		cfg.Lending,
		cfg.Books,
		cfg.Borrows,
		cfg.Reservations,
		cfg.Reviews,
		cfg.AuthService,
		cfg.SessionManager,
		cfg.Auditor,
		cfg.LendingConfig.HomePageBooks,
	)

	// Catalog pages are browsable without signing in, like the catalog API
	router.GET("/", uiController.HomePage)
	router.GET("/books", uiController.BookListPage)
	router.GET("/books/:id", uiController.BookDetailPage)

	pages := router.Group("/", cfg.AuthMiddleware.RequireAuth())
	{
		pages.POST("/borrow/:id", uiController.BorrowBook)
		pages.POST("/return/:id", uiController.ReturnBook)
		pages.POST("/reserve/:id", uiController.ReserveBook)
		pages.POST("/books/:id/review", uiController.ReviewBook)
		pages.GET("/my-books", uiController.MyBooksPage)
	}

	staffPages := router.Group("/", cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireStaff())
	{
		staffPages.GET("/add-book", uiController.AddBookPage)
		staffPages.POST("/add-book", uiController.AddBook)
	}

	return router
}
