package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/authz"
	"github.com/mlukasik/shelfkeeper/internal/database/books"
	"github.com/mlukasik/shelfkeeper/internal/database/reservations"
)

// ReservationsController serves the reservations API. A reservation is a
// statement of interest, nothing more: it does not hold the book and does
// not block borrowing.
type ReservationsController struct {
	reservations *reservations.Repository
	books        *books.Repository
}

func NewReservationsController(reservationsRepo *reservations.Repository, booksRepo *books.Repository) *ReservationsController {
	return &ReservationsController{
		reservations: reservationsRepo,
		books:        booksRepo,
	}
}

// ListReservations handles GET /api/reservations. Members see their own;
// staff may pass all=true.
func (controller *ReservationsController) ListReservations(c *gin.Context) {
	if c.Query("all") == "true" {
		if err := authz.Authorize(contextActor(c), authz.ActionViewReservations, 0); err != nil {
			respondForbidden(c, "staff access required")
			return
		}
		records, err := controller.reservations.ListAll()
		if err != nil {
			respondInternalError(c, err, "list reservations")
			return
		}
		c.JSON(http.StatusOK, gin.H{"reservations": records, "count": len(records)})
		return
	}

	records, err := controller.reservations.ListForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list reservations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": records, "count": len(records)})
}

// ReservationInput is the payload for creating a reservation.
type ReservationInput struct {
	BookID uint `json:"book_id" binding:"required"`
}

// CreateReservation handles POST /api/reservations. Reserving a borrowed
// book is allowed.
func (controller *ReservationsController) CreateReservation(c *gin.Context) {
	var input ReservationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "book_id is required")
		return
	}

	if _, err := controller.books.GetByID(input.BookID); err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "load book")
		return
	}

	reservation, err := controller.reservations.Create(GetUserID(c), input.BookID)
	if err != nil {
		respondInternalError(c, err, "create reservation")
		return
	}

	respondCreated(c, reservation)
}

// CancelReservation handles DELETE /api/reservations/:id. Owner or staff.
func (controller *ReservationsController) CancelReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reservation, err := controller.reservations.GetByID(id)
	if err != nil {
		if errors.Is(err, reservations.ErrNotFound) {
			respondNotFound(c, "reservation")
			return
		}
		respondInternalError(c, err, "load reservation")
		return
	}

	if err := authz.Authorize(contextActor(c), authz.ActionCancelReservation, reservation.UserID); err != nil {
		respondForbidden(c, "not your reservation")
		return
	}

	if err := controller.reservations.Delete(id); err != nil {
		respondInternalError(c, err, "cancel reservation")
		return
	}

	respondSuccess(c, "reservation cancelled")
}
