package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/audit"
	"github.com/mlukasik/shelfkeeper/internal/auth"
	"github.com/mlukasik/shelfkeeper/internal/authz"
	"github.com/mlukasik/shelfkeeper/internal/database/borrows"
	"github.com/mlukasik/shelfkeeper/internal/entities"
	"github.com/mlukasik/shelfkeeper/internal/lending"
)

// BorrowsController serves the lending API.
type BorrowsController struct {
	lending *lending.Service
	borrows *borrows.Repository
	users   *auth.Service
	auditor *audit.Service
}

func NewBorrowsController(lendingService *lending.Service, borrowsRepo *borrows.Repository, users *auth.Service, auditor *audit.Service) *BorrowsController {
	return &BorrowsController{
		lending: lendingService,
		borrows: borrowsRepo,
		users:   users,
		auditor: auditor,
	}
}

// ListBorrows handles GET /api/borrows. Members see their own records;
// staff may pass all=true to see everyone's.
func (controller *BorrowsController) ListBorrows(c *gin.Context) {
	userID := GetUserID(c)
	activeOnly := c.Query("active") == "true"

	if c.Query("all") == "true" {
		if err := authz.Authorize(contextActor(c), authz.ActionViewBorrows, 0); err != nil {
			respondForbidden(c, "staff access required")
			return
		}
		records, err := controller.borrows.ListAll()
		if err != nil {
			respondInternalError(c, err, "list borrows")
			return
		}
		c.JSON(http.StatusOK, gin.H{"borrows": records, "count": len(records)})
		return
	}

	records, err := controller.borrows.ListForUser(userID, activeOnly)
	if err != nil {
		respondInternalError(c, err, "list borrows")
		return
	}
	c.JSON(http.StatusOK, gin.H{"borrows": records, "count": len(records)})
}

// BorrowInput is the payload for creating a borrow.
type BorrowInput struct {
	BookID uint `json:"book_id" binding:"required"`
}

// CreateBorrow handles POST /api/borrows.
//
// Unlike the web form, this endpoint does not refuse a member who already
// holds an unreturned borrow of the same title; availability is the only
// gate. Clients that want the stricter behavior check their active borrows
// first.
func (controller *BorrowsController) CreateBorrow(c *gin.Context) {
	userID := GetUserID(c)

	var input BorrowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "book_id is required")
		return
	}

	borrow, err := controller.lending.BorrowBook(userID, input.BookID)
	controller.auditor.LogBorrow(userID, input.BookID, "", c.ClientIP(), err)
	if err != nil {
		switch {
		case errors.Is(err, lending.ErrBookNotFound):
			respondNotFound(c, "book")
		case errors.Is(err, lending.ErrBookUnavailable):
			respondBadRequest(c, "book is not available")
		default:
			respondInternalError(c, err, "borrow book")
		}
		return
	}

	respondCreated(c, borrow)
}

// ReturnBorrow handles POST /api/return/:id, where id is the borrow ID.
// The borrower or staff may return; anyone else gets 403.
func (controller *BorrowsController) ReturnBorrow(c *gin.Context) {
	borrowID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor, err := controller.actor(c)
	if err != nil {
		respondInternalError(c, err, "load actor")
		return
	}

	returned, err := controller.lending.ReturnBook(actor, borrowID)
	controller.auditor.LogReturn(actor.ID, borrowID, c.ClientIP(), err)
	if err != nil {
		switch {
		case errors.Is(err, lending.ErrBorrowNotFound):
			respondNotFound(c, "borrow")
		case errors.Is(err, lending.ErrAlreadyReturned):
			respondBadRequest(c, "borrow already returned")
		case errors.Is(err, authz.ErrPermissionDenied):
			respondForbidden(c, "not your borrow")
		default:
			respondInternalError(c, err, "return book")
		}
		return
	}

	c.JSON(http.StatusOK, returned)
}

// actor materializes the authenticated caller as a user entity for
// authorization checks.
func (controller *BorrowsController) actor(c *gin.Context) (*entities.User, error) {
	return controller.users.GetUserByID(GetUserID(c))
}
