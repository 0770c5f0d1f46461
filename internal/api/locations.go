// locations.go implements bin-location CRUD for the warehouse layout admin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
)

// LocationHandlers serves /api/locations.
type LocationHandlers struct {
	locations *repositories.LocationRepository
}

// NewLocationHandlers creates the location handlers.
func NewLocationHandlers(locations *repositories.LocationRepository) *LocationHandlers {
	return &LocationHandlers{locations: locations}
}

type locationRequest struct {
	ID       string  `json:"id"`
	Zone     string  `json:"zone"`
	Aisle    string  `json:"aisle"`
	Capacity int     `json:"capacity"`
	SKU      *string `json:"sku"`
}

// Get returns one bin location.
func (h *LocationHandlers) Get(c *gin.Context) {
	loc, err := h.locations.Get(c.Request.Context(), c.Param("locationId"))
	if err != nil {
		writeRepoError(c, err, "")
		return
	}
	if loc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": loc})
}

// Create adds a new bin location.
func (h *LocationHandlers) Create(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	loc := &models.BinLocation{
		ID:       req.ID,
		Zone:     req.Zone,
		Aisle:    req.Aisle,
		Capacity: req.Capacity,
		SKU:      req.SKU,
	}
	if err := h.locations.Create(c.Request.Context(), loc); err != nil {
		writeRepoError(c, err, "Location already exists")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": loc})
}

// Update rewrites a bin location.
func (h *LocationHandlers) Update(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location payload"})
		return
	}

	loc := &models.BinLocation{
		ID:       c.Param("locationId"),
		Zone:     req.Zone,
		Aisle:    req.Aisle,
		Capacity: req.Capacity,
		SKU:      req.SKU,
	}
	if err := h.locations.Update(c.Request.Context(), loc); err != nil {
		writeRepoError(c, err, "Location not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": loc})
}

// Delete removes a bin location.
func (h *LocationHandlers) Delete(c *gin.Context) {
	locationID := c.Param("locationId")
	if err := h.locations.Delete(c.Request.Context(), locationID); err != nil {
		writeRepoError(c, err, "Location not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location deleted", "locationId": locationID})
}
