package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/audit"
	"github.com/mlukasik/shelfkeeper/internal/authz"
	"github.com/mlukasik/shelfkeeper/internal/database/books"
	"github.com/mlukasik/shelfkeeper/internal/entities"
)

// BooksController serves the catalog API. Reads are open to anyone;
// writes check the catalog policy on top of the router's staff gate.
type BooksController struct {
	books   *books.Repository
	auditor *audit.Service
}

func NewBooksController(booksRepo *books.Repository, auditor *audit.Service) *BooksController {
	return &BooksController{
		books:   booksRepo,
		auditor: auditor,
	}
}

// ListBooks handles GET /api/books with optional search, available, author
// and ordering query parameters.
func (controller *BooksController) ListBooks(c *gin.Context) {
	opts := books.ListOptions{
		Search:   c.Query("search"),
		Author:   c.Query("author"),
		Ordering: c.Query("ordering"),
	}

	if availableStr := c.Query("available"); availableStr != "" {
		available := availableStr == "true" || availableStr == "1"
		opts.Available = &available
	}

	rows, err := controller.books.List(opts)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": rows, "count": len(rows)})
}

// GetBook handles GET /api/books/:id.
func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.books.GetByIDWithRating(id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// BookInput is the payload for creating or updating a catalog entry.
type BookInput struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
}

// CreateBook handles POST /api/books. Staff only.
func (controller *BooksController) CreateBook(c *gin.Context) {
	if err := authz.Authorize(contextActor(c), authz.ActionManageCatalog, 0); err != nil {
		respondForbidden(c, "staff access required")
		return
	}

	var input BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	book := &entities.Book{
		Title:       strings.TrimSpace(input.Title),
		Author:      strings.TrimSpace(input.Author),
		ISBN:        strings.TrimSpace(input.ISBN),
		Description: input.Description,
	}
	if book.Title == "" || book.Author == "" {
		respondBadRequest(c, "title and author are required")
		return
	}

	if err := controller.books.Create(book); err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	controller.auditor.LogCatalog(GetUserID(c), "create", book.ID, book.Title)
	respondCreated(c, book)
}

// UpdateBook handles PUT /api/books/:id. Staff only. Availability is not
// part of the payload; only lending operations may change it.
func (controller *BooksController) UpdateBook(c *gin.Context) {
	if err := authz.Authorize(contextActor(c), authz.ActionManageCatalog, 0); err != nil {
		respondForbidden(c, "staff access required")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	book := &entities.Book{
		ID:          id,
		Title:       strings.TrimSpace(input.Title),
		Author:      strings.TrimSpace(input.Author),
		ISBN:        strings.TrimSpace(input.ISBN),
		Description: input.Description,
	}

	if err := controller.books.Update(book); err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "update book")
		return
	}

	controller.auditor.LogCatalog(GetUserID(c), "update", id, book.Title)

	updated, err := controller.books.GetByIDWithRating(id)
	if err != nil {
		respondInternalError(c, err, "reload book")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteBook handles DELETE /api/books/:id. Staff only.
func (controller *BooksController) DeleteBook(c *gin.Context) {
	if err := authz.Authorize(contextActor(c), authz.ActionManageCatalog, 0); err != nil {
		respondForbidden(c, "staff access required")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.books.GetByID(id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "load book")
		return
	}

	if err := controller.books.Delete(id); err != nil {
		respondInternalError(c, err, "delete book")
		return
	}

	controller.auditor.LogCatalog(GetUserID(c), "delete", id, book.Title)
	respondSuccess(c, "book deleted")
}
