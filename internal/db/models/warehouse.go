// Package models - warehouse.go defines the operational entities the picking
// and packing flows act on. Only the columns the API touches are modelled;
// the full schema lives in the migrations.
package models

import "time"

// Product is one stock-keeping unit.
type Product struct {
	SKU     string  `db:"sku" json:"sku"`
	Barcode *string `db:"barcode" json:"barcode,omitempty"`
	Name    string  `db:"name" json:"name"`
}

// Order is one outbound sales order moving through the pick/pack flow.
type Order struct {
	ID             string     `db:"id" json:"id"` // document number, e.g. SO71004
	Status         string     `db:"status" json:"status"`
	AssignedPicker *string    `db:"assigned_picker" json:"assignedPicker,omitempty"`
	WaveID         *string    `db:"wave_id" json:"waveId,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
	CancelledAt    *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID       string `db:"id" json:"id"`
	OrderID  string `db:"order_id" json:"orderId"`
	SKU      string `db:"sku" json:"sku"`
	Quantity int    `db:"quantity" json:"quantity"`
	Packed   bool   `db:"packed" json:"packed"`
}

// PickTask is one unit of picking work generated for an order item.
type PickTask struct {
	ID         string     `db:"id" json:"id"`
	OrderID    string     `db:"order_id" json:"orderId"`
	SKU        string     `db:"sku" json:"sku"`
	LocationID string     `db:"location_id" json:"locationId"`
	Status     string     `db:"status" json:"status"`
	PickedAt   *time.Time `db:"picked_at" json:"pickedAt,omitempty"`
}

// Wave groups orders for batch release onto the floor. Wave IDs are
// server-generated (W-prefixed sequence), which is why the audit pipeline
// backfills them from the response body.
type Wave struct {
	ID         string     `db:"id" json:"id"`
	Status     string     `db:"status" json:"status"`
	CreatedBy  *string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ReleasedAt *time.Time `db:"released_at" json:"releasedAt,omitempty"`
}

// BinLocation is one physical storage slot.
type BinLocation struct {
	ID       string  `db:"id" json:"id"`
	Zone     string  `db:"zone" json:"zone"`
	Aisle    string  `db:"aisle" json:"aisle"`
	Capacity int     `db:"capacity" json:"capacity"`
	SKU      *string `db:"sku" json:"sku,omitempty"`
}

// CycleCount is one inventory-accuracy check against a bin. Count IDs are
// server-generated (CC-prefixed sequence) and backfilled into audit records
// from the creation response.
type CycleCount struct {
	ID              string     `db:"id" json:"id"`
	LocationID      string     `db:"location_id" json:"locationId"`
	Status          string     `db:"status" json:"status"`
	CountedQuantity *int       `db:"counted_quantity" json:"countedQuantity,omitempty"`
	CreatedBy       *string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	CompletedAt     *time.Time `db:"completed_at" json:"completedAt,omitempty"`
}

// ZoneAssignment maps a picker onto a floor zone.
type ZoneAssignment struct {
	UserID     string    `db:"user_id" json:"userId"`
	Zone       string    `db:"zone" json:"zone"`
	AssignedAt time.Time `db:"assigned_at" json:"assignedAt"`
}
