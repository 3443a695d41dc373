package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/authz"
	"github.com/mlukasik/shelfkeeper/internal/database/audit"
	"github.com/mlukasik/shelfkeeper/internal/entities"
	"github.com/mlukasik/shelfkeeper/internal/lending"
)

// StatisticsController serves staff-only aggregates: lending statistics
// and the audit trail. The handlers enforce the policy themselves in
// addition to the router's RequireStaff gate.
type StatisticsController struct {
	lending *lending.Service
	audit   *audit.Repository
}

func NewStatisticsController(lendingService *lending.Service, auditRepo *audit.Repository) *StatisticsController {
	return &StatisticsController{
		lending: lendingService,
		audit:   auditRepo,
	}
}

// GetStatistics handles GET /api/statistics.
func (controller *StatisticsController) GetStatistics(c *gin.Context) {
	if err := authz.Authorize(contextActor(c), authz.ActionViewStatistics, 0); err != nil {
		respondForbidden(c, "staff access required")
		return
	}

	stats, err := controller.lending.Statistics()
	if err != nil {
		respondInternalError(c, err, "statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListAuditEvents handles GET /api/audit with optional type, user_id,
// limit and offset parameters.
func (controller *StatisticsController) ListAuditEvents(c *gin.Context) {
	if err := authz.Authorize(contextActor(c), authz.ActionViewAuditTrail, 0); err != nil {
		respondForbidden(c, "staff access required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var userID uint
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		parsed, err := strconv.ParseUint(userIDStr, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		userID = uint(parsed)
	}

	var events []entities.AuditEvent
	var total int64
	var err error

	if eventType := c.Query("type"); eventType != "" {
		events, total, err = controller.audit.GetEventsByType(entities.AuditEventType(eventType), userID, limit, offset)
	} else {
		events, total, err = controller.audit.GetEvents(userID, limit, offset)
	}
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
