// floor.go implements the floor-management endpoints: inventory adjustment,
// putaway, cycle counts, zone assignment, slotting, shipments, and exports.
// Like the order handlers these stay thin; the interesting behaviour is the
// audit trail they generate.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
	"github.com/warehouse-ops/warehouse-ops/internal/middleware"
)

// FloorHandlers serves the inventory, zone, and pack-station routes.
type FloorHandlers struct {
	locations *repositories.LocationRepository
	orders    *repositories.OrderRepository
}

// NewFloorHandlers creates the floor-management handlers.
func NewFloorHandlers(locations *repositories.LocationRepository, orders *repositories.OrderRepository) *FloorHandlers {
	return &FloorHandlers{locations: locations, orders: orders}
}

type adjustInventoryRequest struct {
	LocationID string `json:"locationId" binding:"required"`
	SKU        string `json:"sku"`
	Adjustment int    `json:"adjustment" binding:"required"`
}

// AdjustInventory applies a signed quantity correction to a bin.
func (h *FloorHandlers) AdjustInventory(c *gin.Context) {
	var req adjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locationId and a non-zero adjustment are required"})
		return
	}

	if err := h.orders.AdjustLocationQuantity(c.Request.Context(), req.LocationID, req.Adjustment); err != nil {
		writeRepoError(c, err, "Location not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Inventory adjusted",
		"locationId": req.LocationID,
		"adjustment": req.Adjustment,
	})
}

type putawayRequest struct {
	LocationID string `json:"locationId" binding:"required"`
	SKU        string `json:"sku" binding:"required"`
}

// Putaway places received stock into an empty bin.
func (h *FloorHandlers) Putaway(c *gin.Context) {
	var req putawayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locationId and sku are required"})
		return
	}

	if err := h.locations.Putaway(c.Request.Context(), req.LocationID, req.SKU); err != nil {
		writeRepoError(c, err, "Bin is occupied or does not exist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Putaway completed", "locationId": req.LocationID})
}

type createCycleCountRequest struct {
	LocationID string `json:"locationId" binding:"required"`
}

// CreateCycleCount opens a count against a bin. The generated count ID is
// returned in the data envelope so the audit record can carry it.
func (h *FloorHandlers) CreateCycleCount(c *gin.Context) {
	var req createCycleCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locationId is required"})
		return
	}

	createdBy := c.GetString(middleware.UserIDContextKey)
	countID, err := h.locations.CreateCycleCount(c.Request.Context(), req.LocationID, createdBy)
	if err != nil {
		writeRepoError(c, err, "Cycle count could not be created")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"countId":    countID,
			"locationId": req.LocationID,
		},
	})
}

type completeCycleCountRequest struct {
	Quantity int `json:"quantity"`
}

// CompleteCycleCount records the counted quantity and closes the count.
func (h *FloorHandlers) CompleteCycleCount(c *gin.Context) {
	countID := c.Param("id")

	var req completeCycleCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}

	if err := h.locations.CompleteCycleCount(c.Request.Context(), countID, req.Quantity); err != nil {
		writeRepoError(c, err, "Cycle count is not open")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cycle count completed", "countId": countID})
}

type zoneRequest struct {
	UserID string `json:"userId" binding:"required"`
	Zone   string `json:"zone" binding:"required"`
}

// AssignZone maps a picker onto a floor zone.
func (h *FloorHandlers) AssignZone(c *gin.Context) {
	var req zoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and zone are required"})
		return
	}

	if err := h.locations.AssignZone(c.Request.Context(), req.UserID, req.Zone); err != nil {
		writeRepoError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Zone assigned", "zone": req.Zone})
}

// ReleaseZone removes a picker's zone assignment.
func (h *FloorHandlers) ReleaseZone(c *gin.Context) {
	var req zoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and zone are required"})
		return
	}

	if err := h.locations.ReleaseZone(c.Request.Context(), req.UserID, req.Zone); err != nil {
		writeRepoError(c, err, "No such zone assignment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Zone released", "zone": req.Zone})
}

type rebalanceZonesRequest struct {
	Zones []string `json:"zones" binding:"required,min=1"`
}

// RebalanceZones clears all assignments within the given zones.
func (h *FloorHandlers) RebalanceZones(c *gin.Context) {
	var req rebalanceZonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "zones is required"})
		return
	}

	cleared, err := h.locations.RebalanceZones(c.Request.Context(), req.Zones)
	if err != nil {
		writeRepoError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Zones rebalanced", "cleared": cleared})
}

type applySlottingRequest struct {
	Moves []repositories.SlottingMove `json:"moves" binding:"required,min=1"`
}

// ApplySlotting applies a slotting plan atomically.
func (h *FloorHandlers) ApplySlotting(c *gin.Context) {
	var req applySlottingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "moves is required"})
		return
	}

	if err := h.locations.ApplySlotting(c.Request.Context(), req.Moves); err != nil {
		writeRepoError(c, err, "Slotting plan references an unknown bin")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Slotting applied", "moves": len(req.Moves)})
}

type createShipmentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// CreateShipment marks the order shipped. This is the pack station's
// terminal action.
func (h *FloorHandlers) CreateShipment(c *gin.Context) {
	var req createShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	if err := h.orders.SetStatus(c.Request.Context(), req.OrderID, "shipped"); err != nil {
		writeRepoError(c, err, "Order not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{"orderId": req.OrderID, "status": "shipped"},
	})
}

// GenerateExport produces an order-count manifest. The export itself is the
// audit-relevant act; the manifest is small enough to return inline.
func (h *FloorHandlers) GenerateExport(c *gin.Context) {
	counts, err := h.orders.CountByStatus(c.Request.Context())
	if err != nil {
		writeRepoError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"exportId":    fmt.Sprintf("EXP-%d", time.Now().Unix()),
			"generatedAt": time.Now().UTC().Format(time.RFC3339),
			"orderCounts": counts,
		},
	})
}
