// orders.go implements the picking-flow endpoints. Handlers are thin: each
// binds a small request shape, performs one guarded repository transition,
// and maps repositories.ErrConflict onto 409 so stale scanner clients get a
// distinguishable outcome from a genuine server error.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
	"github.com/warehouse-ops/warehouse-ops/internal/middleware"
)

// OrderHandlers serves /api/orders.
type OrderHandlers struct {
	orders *repositories.OrderRepository
}

// NewOrderHandlers creates the order handlers.
func NewOrderHandlers(orders *repositories.OrderRepository) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// writeRepoError maps a repository failure onto the right status code.
func writeRepoError(c *gin.Context, err error, conflictMsg string) {
	if errors.Is(err, repositories.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": conflictMsg})
		return
	}
	slog.Error("repository operation failed", "error", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
}

// Get returns one order.
func (h *OrderHandlers) Get(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeRepoError(c, err, "")
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// Claim assigns the order to the calling picker.
func (h *OrderHandlers) Claim(c *gin.Context) {
	orderID := c.Param("orderId")
	pickerID := c.GetString(middleware.UserIDContextKey)

	if err := h.orders.Claim(c.Request.Context(), orderID, pickerID); err != nil {
		writeRepoError(c, err, "Order is already claimed or not claimable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order claimed", "orderId": orderID})
}

// Unclaim releases the caller's claim back to the queue.
func (h *OrderHandlers) Unclaim(c *gin.Context) {
	orderID := c.Param("orderId")
	pickerID := c.GetString(middleware.UserIDContextKey)

	if err := h.orders.Unclaim(c.Request.Context(), orderID, pickerID); err != nil {
		writeRepoError(c, err, "Order is not claimed by you")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order unclaimed", "orderId": orderID})
}

// Continue resumes a previously claimed order.
func (h *OrderHandlers) Continue(c *gin.Context) {
	orderID := c.Param("orderId")
	if err := h.orders.SetStatus(c.Request.Context(), orderID, "picking"); err != nil {
		writeRepoError(c, err, "Order not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Picking resumed", "orderId": orderID})
}

type pickRequest struct {
	SKU     string `json:"sku"`
	Barcode string `json:"barcode"`
}

// Pick records one item scan against the order's open pick task.
func (h *OrderHandlers) Pick(c *gin.Context) {
	orderID := c.Param("orderId")

	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.SKU == "" && req.Barcode == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku or barcode is required"})
		return
	}
	code := req.SKU
	if code == "" {
		code = req.Barcode
	}

	if err := h.orders.MarkPicked(c.Request.Context(), orderID, code); err != nil {
		writeRepoError(c, err, "No open pick task for that item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item picked", "orderId": orderID})
}

type undoPickRequest struct {
	PickTaskID string `json:"pickTaskId" binding:"required"`
}

// UndoPick reopens a picked task after a mis-scan.
func (h *OrderHandlers) UndoPick(c *gin.Context) {
	var req undoPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pickTaskId is required"})
		return
	}

	if err := h.orders.UndoPick(c.Request.Context(), req.PickTaskID); err != nil {
		writeRepoError(c, err, "Pick task is not in a picked state")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pick undone", "pickTaskId": req.PickTaskID})
}

// Complete confirms the order's pick list is fully worked.
func (h *OrderHandlers) Complete(c *gin.Context) {
	orderID := c.Param("orderId")
	if err := h.orders.SetStatus(c.Request.Context(), orderID, "picked"); err != nil {
		writeRepoError(c, err, "Order not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order list confirmed", "orderId": orderID})
}

// VerifyPacking records the pack-station verification step.
func (h *OrderHandlers) VerifyPacking(c *gin.Context) {
	orderID := c.Param("orderId")
	if err := h.orders.SetStatus(c.Request.Context(), orderID, "verified"); err != nil {
		writeRepoError(c, err, "Order not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Packing verified", "orderId": orderID})
}

// Cancel cancels an unshipped order.
func (h *OrderHandlers) Cancel(c *gin.Context) {
	orderID := c.Param("orderId")
	if err := h.orders.Cancel(c.Request.Context(), orderID); err != nil {
		writeRepoError(c, err, "Order is already shipped or cancelled")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled", "orderId": orderID})
}
