package http

import (
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlukasik/shelfkeeper/internal/audit"
	"github.com/mlukasik/shelfkeeper/internal/auth"
	"github.com/mlukasik/shelfkeeper/internal/database"
	auditrepo "github.com/mlukasik/shelfkeeper/internal/database/audit"
	"github.com/mlukasik/shelfkeeper/internal/database/books"
	"github.com/mlukasik/shelfkeeper/internal/database/borrows"
	"github.com/mlukasik/shelfkeeper/internal/database/reservations"
	"github.com/mlukasik/shelfkeeper/internal/database/reviews"
	"github.com/mlukasik/shelfkeeper/internal/entities"
	"github.com/mlukasik/shelfkeeper/internal/lending"
)

type uiTestEnv struct {
	db         *database.Database
	books      *books.Repository
	borrows    *borrows.Repository
	lending    *lending.Service
	controller *UIController
	sessions   *auth.SessionManager
	member     *entities.User
	auditor    *audit.Service
}

func setupUITest(t *testing.T) (*uiTestEnv, func()) {
	t.Helper()
	db, cleanup := setupHTTPTestDB(t)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sessionManager, err := auth.NewSessionManager(sqlDB, testAuthConfig())
	require.NoError(t, err)

	auditor := audit.NewService(auditrepo.NewRepository(db.DB))
	booksRepo := books.NewRepository(db.DB)
	borrowsRepo := borrows.NewRepository(db.DB)
	reservationsRepo := reservations.NewRepository(db.DB)
	reviewsRepo := reviews.NewRepository(db.DB)
	lendingService := lending.NewService(db.DB, 14)
	users := auth.NewService(db.DB, testAuthConfig())

	controller := NewUIController(
		lendingService,
		booksRepo,
		borrowsRepo,
		reservationsRepo,
		reviewsRepo,
		users,
		sessionManager,
		auditor,
		6,
	)

	return &uiTestEnv{
		db:         db,
		books:      booksRepo,
		borrows:    borrowsRepo,
		lending:    lendingService,
		controller: controller,
		sessions:   sessionManager,
		member:     createHTTPTestUser(t, db, "member", false),
		auditor:    auditor,
	}, func() {
		auditor.Wait()
		cleanup()
	}
}

func (env *uiTestEnv) routerAs(user *entities.User) *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("").ParseGlob("../../templates/*.html")))
	router.Use(env.sessions.SessionLoadSave())
	router.Use(asUser(user))
	router.Use(AuthContextMiddleware())
	router.GET("/", env.controller.HomePage)
	router.GET("/books", env.controller.BookListPage)
	router.GET("/books/:id", env.controller.BookDetailPage)
	router.POST("/borrow/:id", env.controller.BorrowBook)
	router.POST("/return/:id", env.controller.ReturnBook)
	router.POST("/reserve/:id", env.controller.ReserveBook)
	router.GET("/my-books", env.controller.MyBooksPage)
	return router
}

func TestUIController_HomePage(t *testing.T) {
	env, cleanup := setupUITest(t)
	defer cleanup()

	require.NoError(t, env.books.Create(&entities.Book{Title: "Hyperion", Author: "Dan Simmons"}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	env.routerAs(env.member).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hyperion")
	assert.Contains(t, w.Body.String(), "member")
}

func TestUIController_BookListPage(t *testing.T) {
	env, cleanup := setupUITest(t)
	defer cleanup()

	require.NoError(t, env.books.Create(&entities.Book{Title: "Dune", Author: "Frank Herbert"}))
	require.NoError(t, env.books.Create(&entities.Book{Title: "Solaris", Author: "Stanislaw Lem"}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/books?q=dune", nil)
	env.routerAs(env.member).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune")
	assert.NotContains(t, w.Body.String(), "Solaris")
}

func TestUIController_BookDetailPage(t *testing.T) {
	t.Run("offers borrow when available", func(t *testing.T) {
		env, cleanup := setupUITest(t)
		defer cleanup()

		book := &entities.Book{Title: "Detail", Author: "Author"}
		require.NoError(t, env.books.Create(book))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", fmt.Sprintf("/books/%d", book.ID), nil)
		env.routerAs(env.member).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Borrow")
	})

	t.Run("shows on-loan note when the member holds the book", func(t *testing.T) {
		env, cleanup := setupUITest(t)
		defer cleanup()

		book := &entities.Book{Title: "Held", Author: "Author"}
		require.NoError(t, env.books.Create(book))
		_, err := env.lending.BorrowBook(env.member.ID, book.ID)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", fmt.Sprintf("/books/%d", book.ID), nil)
		env.routerAs(env.member).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "on loan")
	})

	t.Run("returns 404 for a missing book", func(t *testing.T) {
		env, cleanup := setupUITest(t)
		defer cleanup()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/books/999", nil)
		env.routerAs(env.member).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUIController_BorrowBook(t *testing.T) {
	t.Run("borrows and redirects back to the book", func(t *testing.T) {
		env, cleanup := setupUITest(t)
		defer cleanup()

		book := &entities.Book{Title: "Borrowable", Author: "Author"}
		require.NoError(t, env.books.Create(book))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", fmt.Sprintf("/borrow/%d", book.ID), nil)
		env.routerAs(env.member).ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, fmt.Sprintf("/books/%d", book.ID), w.Header().Get("Location"))

		reloaded, err := env.books.GetByID(book.ID)
		require.NoError(t, err)
		assert.False(t, reloaded.Available)
	})

	t.Run("refuses a duplicate borrow of the same title", func(t *testing.T) {
		env, cleanup := setupUITest(t)
		defer cleanup()

		book := &entities.Book{Title: "Duplicate", Author: "Author"}
		require.NoError(t, env.books.Create(book))
		_, err := env.lending.BorrowBook(env.member.ID, book.ID)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", fmt.Sprintf("/borrow/%d", book.ID), nil)
		env.routerAs(env.member).ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)

		records, err := env.borrows.ListForUser(env.member.ID, true)
		require.NoError(t, err)
		assert.Len(t, records, 1, "the duplicate attempt must not create a second borrow")
	})

	t.Run("fails closed when the duplicate check cannot run", func(t *testing.T) {
		env, cleanup := setupUITest(t)
		defer cleanup()

		book := &entities.Book{Title: "Unreachable", Author: "Author"}
		require.NoError(t, env.books.Create(book))

		require.NoError(t, env.db.Close())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", fmt.Sprintf("/borrow/%d", book.ID), nil)
		env.routerAs(env.member).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestUIController_ReturnBook(t *testing.T) {
	env, cleanup := setupUITest(t)
	defer cleanup()

	book := &entities.Book{Title: "Returnable", Author: "Author"}
	require.NoError(t, env.books.Create(book))
	borrow, err := env.lending.BorrowBook(env.member.ID, book.ID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/return/%d", borrow.ID), nil)
	env.routerAs(env.member).ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/my-books", w.Header().Get("Location"))

	reloaded, err := env.books.GetByID(book.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Available)
}

func TestUIController_MyBooksPage(t *testing.T) {
	env, cleanup := setupUITest(t)
	defer cleanup()

	book := &entities.Book{Title: "On My Shelf", Author: "Author"}
	require.NoError(t, env.books.Create(book))
	_, err := env.lending.BorrowBook(env.member.ID, book.ID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/my-books", nil)
	env.routerAs(env.member).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "On My Shelf")
}
