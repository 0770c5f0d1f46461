// waves.go implements the wave lifecycle endpoints. Wave creation returns
// the server-generated wave ID in a data envelope; the audit middleware
// backfills that ID into the event record from this response.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
	"github.com/warehouse-ops/warehouse-ops/internal/middleware"
)

// WaveHandlers serves /api/waves.
type WaveHandlers struct {
	orders *repositories.OrderRepository
}

// NewWaveHandlers creates the wave handlers.
func NewWaveHandlers(orders *repositories.OrderRepository) *WaveHandlers {
	return &WaveHandlers{orders: orders}
}

type createWaveRequest struct {
	OrderIDs []string `json:"orderIds" binding:"required,min=1"`
}

// Create groups the given orders into a new wave.
func (h *WaveHandlers) Create(c *gin.Context) {
	var req createWaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderIds is required"})
		return
	}

	createdBy := c.GetString(middleware.UserIDContextKey)
	waveID, err := h.orders.CreateWave(c.Request.Context(), createdBy, req.OrderIDs)
	if err != nil {
		writeRepoError(c, err, "Wave could not be created")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"waveId":     waveID,
			"orderCount": len(req.OrderIDs),
		},
	})
}

// Release releases the wave's orders onto the floor.
func (h *WaveHandlers) Release(c *gin.Context) {
	waveID := c.Param("id")
	if err := h.orders.SetWaveStatus(c.Request.Context(), waveID, "released"); err != nil {
		writeRepoError(c, err, "Wave not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wave released", "waveId": waveID})
}

// Complete closes out a fully picked wave.
func (h *WaveHandlers) Complete(c *gin.Context) {
	waveID := c.Param("id")
	if err := h.orders.SetWaveStatus(c.Request.Context(), waveID, "completed"); err != nil {
		writeRepoError(c, err, "Wave not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wave completed", "waveId": waveID})
}
