package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/audit"
	"github.com/mlukasik/shelfkeeper/internal/auth"
	"github.com/mlukasik/shelfkeeper/internal/authz"
	"github.com/mlukasik/shelfkeeper/internal/database/books"
	"github.com/mlukasik/shelfkeeper/internal/database/borrows"
	"github.com/mlukasik/shelfkeeper/internal/database/reservations"
	"github.com/mlukasik/shelfkeeper/internal/database/reviews"
	"github.com/mlukasik/shelfkeeper/internal/entities"
	"github.com/mlukasik/shelfkeeper/internal/lending"
)

// UIController renders the HTML pages and handles their form posts.
type UIController struct {
	lending       *lending.Service
	books         *books.Repository
	borrows       *borrows.Repository
	reservations  *reservations.Repository
	reviews       *reviews.Repository
	users         *auth.Service
	sessions      *auth.SessionManager
	auditor       *audit.Service
	homePageBooks int
}

func NewUIController(
	lendingService *lending.Service,
	booksRepo *books.Repository,
	borrowsRepo *borrows.Repository,
	reservationsRepo *reservations.Repository,
	reviewsRepo *reviews.Repository,
	users *auth.Service,
	sessions *auth.SessionManager,
	auditor *audit.Service,
	homePageBooks int,
) *UIController {
	if homePageBooks <= 0 {
		homePageBooks = 6
	}
	return &UIController{
		lending:       lendingService,
		books:         booksRepo,
		borrows:       borrowsRepo,
		reservations:  reservationsRepo,
		reviews:       reviewsRepo,
		users:         users,
		sessions:      sessions,
		auditor:       auditor,
		homePageBooks: homePageBooks,
	}
}

// pageData assembles the common template payload: auth state and any
// pending flash message.
func (controller *UIController) pageData(c *gin.Context, extra gin.H) gin.H {
	data := gin.H{
		"Auth":  GetAuthTemplateData(c),
		"Flash": controller.sessions.PopFlash(c.Request),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// HomePage shows a welcome banner and a handful of available books.
func (controller *UIController) HomePage(c *gin.Context) {
	available, err := controller.books.ListAvailable(controller.homePageBooks)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading books: %s", err.Error())
		return
	}

	c.HTML(http.StatusOK, "home", controller.pageData(c, gin.H{
		"Title": "Welcome",
		"Books": available,
	}))
}

// BookListPage shows the catalog with search, filters and ordering.
func (controller *UIController) BookListPage(c *gin.Context) {
	opts := books.ListOptions{
		Search:   c.Query("q"),
		Author:   c.Query("author"),
		Ordering: c.Query("ordering"),
	}
	if availableStr := c.Query("available"); availableStr != "" {
		available := availableStr == "true" || availableStr == "1"
		opts.Available = &available
	}

	rows, err := controller.books.List(opts)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading books: %s", err.Error())
		return
	}

	c.HTML(http.StatusOK, "book_list", controller.pageData(c, gin.H{
		"Title":    "Books",
		"Books":    rows,
		"Query":    opts.Search,
		"Author":   opts.Author,
		"Ordering": opts.Ordering,
	}))
}

// BookDetailPage shows a single book with its reviews and actions.
func (controller *UIController) BookDetailPage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid book ID")
		return
	}

	book, err := controller.books.GetByIDWithRating(uint(id))
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			c.String(http.StatusNotFound, "Book not found")
			return
		}
		c.String(http.StatusInternalServerError, "Error loading book: %s", err.Error())
		return
	}

	bookReviews, err := controller.reviews.ListForBook(book.ID)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading reviews: %s", err.Error())
		return
	}

	alreadyBorrowed := false
	if userID := GetUserID(c); userID != 0 {
		alreadyBorrowed, err = controller.lending.HasActiveBorrow(userID, book.ID)
		if err != nil {
			log.Printf("Internal error (active borrow check): %v", err)
		}
	}

	c.HTML(http.StatusOK, "book_detail", controller.pageData(c, gin.H{
		"Title":           book.Title,
		"Book":            book,
		"Reviews":         bookReviews,
		"AlreadyBorrowed": alreadyBorrowed,
	}))
}

// BorrowBook handles POST /borrow/:id (book ID). Unlike the API, the web
// form refuses a duplicate borrow of a title the member already holds.
func (controller *UIController) BorrowBook(c *gin.Context) {
	userID := GetUserID(c)
	bookID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid book ID")
		return
	}

	// The duplicate guard must not silently vanish on a store error
	has, err := controller.lending.HasActiveBorrow(userID, uint(bookID))
	if err != nil {
		log.Printf("Internal error (active borrow check): %v", err)
		c.String(http.StatusInternalServerError, "Error borrowing book")
		return
	}
	if has {
		controller.sessions.PutFlash(c.Request, "You have already borrowed this book.")
		c.Redirect(http.StatusFound, "/books/"+c.Param("id"))
		return
	}

	_, err = controller.lending.BorrowBook(userID, uint(bookID))
	controller.auditor.LogBorrow(userID, uint(bookID), "", c.ClientIP(), err)
	switch {
	case err == nil:
		controller.sessions.PutFlash(c.Request, "Book borrowed. Enjoy!")
	case errors.Is(err, lending.ErrBookNotFound):
		c.String(http.StatusNotFound, "Book not found")
		return
	case errors.Is(err, lending.ErrBookUnavailable):
		controller.sessions.PutFlash(c.Request, "Sorry, that book is not available.")
	default:
		c.String(http.StatusInternalServerError, "Error borrowing book")
		return
	}

	c.Redirect(http.StatusFound, "/books/"+c.Param("id"))
}

// ReturnBook handles POST /return/:id (borrow ID).
func (controller *UIController) ReturnBook(c *gin.Context) {
	borrowID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid borrow ID")
		return
	}

	actor, err := controller.users.GetUserByID(GetUserID(c))
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading account")
		return
	}

	_, err = controller.lending.ReturnBook(actor, uint(borrowID))
	controller.auditor.LogReturn(actor.ID, uint(borrowID), c.ClientIP(), err)
	switch {
	case err == nil:
		controller.sessions.PutFlash(c.Request, "Book returned. Thank you!")
	case errors.Is(err, lending.ErrBorrowNotFound):
		c.String(http.StatusNotFound, "Borrow not found")
		return
	case errors.Is(err, lending.ErrAlreadyReturned):
		controller.sessions.PutFlash(c.Request, "That book was already returned.")
	case errors.Is(err, authz.ErrPermissionDenied):
		c.String(http.StatusForbidden, "Not your borrow")
		return
	default:
		c.String(http.StatusInternalServerError, "Error returning book")
		return
	}

	c.Redirect(http.StatusFound, "/my-books")
}

// ReserveBook handles POST /reserve/:id (book ID). Reserving is allowed
// even when the book is out.
func (controller *UIController) ReserveBook(c *gin.Context) {
	bookID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid book ID")
		return
	}

	if _, err := controller.books.GetByID(uint(bookID)); err != nil {
		c.String(http.StatusNotFound, "Book not found")
		return
	}

	if _, err := controller.reservations.Create(GetUserID(c), uint(bookID)); err != nil {
		c.String(http.StatusInternalServerError, "Error reserving book")
		return
	}

	controller.sessions.PutFlash(c.Request, "Book reserved. We'll hold your place in line.")
	c.Redirect(http.StatusFound, "/books/"+c.Param("id"))
}

// ReviewBook handles the review form on the book detail page.
func (controller *UIController) ReviewBook(c *gin.Context) {
	bookID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid book ID")
		return
	}

	rating, err := strconv.Atoi(c.PostForm("rating"))
	if err != nil {
		controller.sessions.PutFlash(c.Request, "Please pick a rating between 1 and 5.")
		c.Redirect(http.StatusFound, "/books/"+c.Param("id"))
		return
	}

	if _, err := controller.books.GetByID(uint(bookID)); err != nil {
		c.String(http.StatusNotFound, "Book not found")
		return
	}

	_, err = controller.reviews.Create(GetUserID(c), uint(bookID), rating, c.PostForm("comment"))
	if err != nil {
		controller.sessions.PutFlash(c.Request, "Please pick a rating between 1 and 5.")
	} else {
		controller.sessions.PutFlash(c.Request, "Review posted.")
	}
	c.Redirect(http.StatusFound, "/books/"+c.Param("id"))
}

// MyBooksPage shows the member's active loans, history and reservations.
func (controller *UIController) MyBooksPage(c *gin.Context) {
	userID := GetUserID(c)

	active, err := controller.borrows.ListForUser(userID, true)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading borrows: %s", err.Error())
		return
	}

	history, err := controller.borrows.ListForUser(userID, false)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading borrows: %s", err.Error())
		return
	}

	reserved, err := controller.reservations.ListForUser(userID)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading reservations: %s", err.Error())
		return
	}

	c.HTML(http.StatusOK, "my_books", controller.pageData(c, gin.H{
		"Title":        "My Books",
		"Active":       active,
		"History":      history,
		"Reservations": reserved,
	}))
}

// AddBookPage renders the staff form for adding a catalog entry.
func (controller *UIController) AddBookPage(c *gin.Context) {
	c.HTML(http.StatusOK, "add_book", controller.pageData(c, gin.H{
		"Title": "Add Book",
	}))
}

// AddBook handles the add-book form submission. Staff only.
func (controller *UIController) AddBook(c *gin.Context) {
	title := c.PostForm("title")
	author := c.PostForm("author")

	if title == "" || author == "" {
		c.HTML(http.StatusBadRequest, "add_book", controller.pageData(c, gin.H{
			"Title":       "Add Book",
			"Error":       "Title and author are required",
			"FormTitle":   title,
			"FormAuthor":  author,
			"FormISBN":    c.PostForm("isbn"),
			"Description": c.PostForm("description"),
		}))
		return
	}

	book := &entities.Book{
		Title:       title,
		Author:      author,
		ISBN:        c.PostForm("isbn"),
		Description: c.PostForm("description"),
	}
	if err := controller.books.Create(book); err != nil {
		c.String(http.StatusInternalServerError, "Error adding book")
		return
	}

	controller.auditor.LogCatalog(GetUserID(c), "create", book.ID, book.Title)
	controller.sessions.PutFlash(c.Request, "Book added to the catalog.")
	c.Redirect(http.StatusFound, "/books/"+strconv.FormatUint(uint64(book.ID), 10))
}
