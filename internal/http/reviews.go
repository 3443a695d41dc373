package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/authz"
	"github.com/mlukasik/shelfkeeper/internal/database/books"
	"github.com/mlukasik/shelfkeeper/internal/database/reviews"
)

// ReviewsController serves the reviews API.
type ReviewsController struct {
	reviews *reviews.Repository
	books   *books.Repository
}

func NewReviewsController(reviewsRepo *reviews.Repository, booksRepo *books.Repository) *ReviewsController {
	return &ReviewsController{
		reviews: reviewsRepo,
		books:   booksRepo,
	}
}

// ListReviews handles GET /api/reviews. With book_id set it lists a book's
// reviews; otherwise the caller's own.
func (controller *ReviewsController) ListReviews(c *gin.Context) {
	if bookIDStr := c.Query("book_id"); bookIDStr != "" {
		bookID, err := strconv.ParseUint(bookIDStr, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid book_id")
			return
		}
		records, err := controller.reviews.ListForBook(uint(bookID))
		if err != nil {
			respondInternalError(c, err, "list reviews")
			return
		}
		c.JSON(http.StatusOK, gin.H{"reviews": records, "count": len(records)})
		return
	}

	records, err := controller.reviews.ListForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": records, "count": len(records)})
}

// ReviewInput is the payload for creating a review.
type ReviewInput struct {
	BookID  uint   `json:"book_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// CreateReview handles POST /api/reviews. Rating is 1-5; a member may
// review the same book more than once.
func (controller *ReviewsController) CreateReview(c *gin.Context) {
	var input ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "book_id and rating are required")
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

	review, err := controller.reviews.Create(GetUserID(c), input.BookID, input.Rating, input.Comment)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	respondCreated(c, review)
}

// ListBookReviews handles GET /api/books/:id/reviews.
func (controller *ReviewsController) ListBookReviews(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := controller.books.GetByID(bookID); err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "load book")
		return
	}

	records, err := controller.reviews.ListForBook(bookID)
	if err != nil {
		respondInternalError(c, err, "list reviews")
		return
	}

	average, err := controller.reviews.AverageForBook(bookID)
	if err != nil {
		respondInternalError(c, err, "average rating")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":        records,
		"count":          len(records),
		"average_rating": average,
	})
}

// DeleteReview handles DELETE /api/reviews/:id. Owner or staff.
func (controller *ReviewsController) DeleteReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	review, err := controller.reviews.GetByID(id)
	if err != nil {
		if errors.Is(err, reviews.ErrNotFound) {
			respondNotFound(c, "review")
			return
		}
		respondInternalError(c, err, "load review")
		return
	}

	if err := authz.Authorize(contextActor(c), authz.ActionDeleteReview, review.UserID); err != nil {
		respondForbidden(c, "not your review")
		return
	}

	if err := controller.reviews.Delete(id); err != nil {
		respondInternalError(c, err, "delete review")
		return
	}

	respondSuccess(c, "review deleted")
}
