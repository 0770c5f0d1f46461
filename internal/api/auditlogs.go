// auditlogs.go implements the admin audit viewer: filtered, paginated reads
// over the audit table. These routes are themselves excluded from auditing.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditLogHandlers serves /api/admin/audit-logs.
type AuditLogHandlers struct {
	audits *repositories.AuditRepository
}

// NewAuditLogHandlers creates the audit viewer handlers.
func NewAuditLogHandlers(audits *repositories.AuditRepository) *AuditLogHandlers {
	return &AuditLogHandlers{audits: audits}
}

// List returns audit events newest first, filtered by the query string.
// Supported filters: user_id, action_type, action_category, resource_type,
// resource_id, start_date, end_date (RFC3339). Pagination: page (1-based),
// limit.
func (h *AuditLogHandlers) List(c *gin.Context) {
	filters := repositories.AuditFilters{}

	stringFilter := func(name string) *string {
		if v := c.Query(name); v != "" {
			return &v
		}
		return nil
	}
	filters.UserID = stringFilter("user_id")
	filters.ActionType = stringFilter("action_type")
	filters.ActionCategory = stringFilter("action_category")
	filters.ResourceType = stringFilter("resource_type")
	filters.ResourceID = stringFilter("resource_id")

	for name, dst := range map[string]**time.Time{
		"start_date": &filters.StartDate,
		"end_date":   &filters.EndDate,
	} {
		if v := c.Query(name); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": name + " must be an RFC3339 timestamp",
				})
				return
			}
			*dst = &ts
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditPageSize)))
	if limit < 1 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	offset := (page - 1) * limit

	events, total, err := h.audits.List(c.Request.Context(), filters, limit, offset)
	if err != nil {
		writeRepoError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": events,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// Get returns a single audit event.
func (h *AuditLogHandlers) Get(c *gin.Context) {
	event, err := h.audits.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeRepoError(c, err, "")
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit event not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": event})
}
