package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/auth"
	"github.com/mlukasik/shelfkeeper/internal/database/borrows"
	"github.com/mlukasik/shelfkeeper/internal/database/reservations"
	"github.com/mlukasik/shelfkeeper/internal/database/reviews"
)

// ProfileController serves the member profile API: the caller's account
// plus their borrow, reservation and review history.
type ProfileController struct {
	users        *auth.Service
	borrows      *borrows.Repository
	reservations *reservations.Repository
	reviews      *reviews.Repository
}

func NewProfileController(users *auth.Service, borrowsRepo *borrows.Repository, reservationsRepo *reservations.Repository, reviewsRepo *reviews.Repository) *ProfileController {
	return &ProfileController{
		users:        users,
		borrows:      borrowsRepo,
		reservations: reservationsRepo,
		reviews:      reviewsRepo,
	}
}

// GetProfile handles GET /api/profile.
func (controller *ProfileController) GetProfile(c *gin.Context) {
	userID := GetUserID(c)

	user, err := controller.users.GetUserByID(userID)
	if err != nil {
		respondInternalError(c, err, "load user")
		return
	}

	borrowRecords, err := controller.borrows.ListForUser(userID, false)
	if err != nil {
		respondInternalError(c, err, "load borrows")
		return
	}

	reservationRecords, err := controller.reservations.ListForUser(userID)
	if err != nil {
		respondInternalError(c, err, "load reservations")
		return
	}

	reviewRecords, err := controller.reviews.ListForUser(userID)
	if err != nil {
		respondInternalError(c, err, "load reviews")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"borrows":      borrowRecords,
		"reservations": reservationRecords,
		"reviews":      reviewRecords,
	})
}

// ChangePasswordInput is the payload for POST /api/profile/password.
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword handles POST /api/profile/password.
func (controller *ProfileController) ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "old_password and new_password are required")
		return
	}

	// Map service errors to fixed strings so nothing internal reaches the client
	if err := controller.users.ChangePassword(GetUserID(c), input.OldPassword, input.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidPassword):
			respondBadRequest(c, "old password is incorrect")
		case errors.Is(err, auth.ErrPasswordTooShort):
			respondBadRequest(c, "new password must be at least 8 characters")
		case errors.Is(err, auth.ErrPasswordTooLong):
			respondBadRequest(c, "new password exceeds the maximum length")
		default:
			respondInternalError(c, err, "change password")
		}
		return
	}

	respondSuccess(c, "password changed")
}
