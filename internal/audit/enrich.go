// enrich.go turns opaque warehouse codes into human-readable names for event
// descriptions. Every lookup is best-effort: a miss or a query error falls
// back to the raw code so the pipeline never stalls on a cold cache, a
// deleted product, or a dead connection.
package audit

import "context"

// LookupStore is the read-only collaborator the pipeline uses for
// enrichment. Implementations return ("", nil) when nothing matches; errors
// are treated identically to misses by every caller.
type LookupStore interface {
	ProductNameBySKUOrBarcode(ctx context.Context, code string) (string, error)
	SKUByPickTaskID(ctx context.Context, id string) (string, error)
	SKUByOrderItemID(ctx context.Context, id string) (string, error)
}

// Resolver wraps a LookupStore with the fall-back-to-raw-code policy.
// A nil-store Resolver is valid and resolves everything to the raw input,
// which keeps the description generators total in tests and in degraded
// deployments with no lookup database.
type Resolver struct {
	store LookupStore
}

// NewResolver creates a Resolver over store; store may be nil.
func NewResolver(store LookupStore) *Resolver {
	return &Resolver{store: store}
}

// ProductName resolves a SKU or barcode to the product's display name,
// returning the code itself on any failure.
func (r *Resolver) ProductName(ctx context.Context, code string) string {
	if r == nil || r.store == nil || code == "" {
		return code
	}
	name, err := r.store.ProductNameBySKUOrBarcode(ctx, code)
	if err != nil || name == "" {
		return code
	}
	return name
}

// ProductNameByPickTask chains pick-task → SKU → product name. Used for
// undo-pick descriptions where the client only knows the task it is undoing.
// Falls back to the SKU if the name lookup misses, and to the task ID if even
// the SKU is unresolvable.
func (r *Resolver) ProductNameByPickTask(ctx context.Context, taskID string) string {
	if r == nil || r.store == nil || taskID == "" {
		return taskID
	}
	sku, err := r.store.SKUByPickTaskID(ctx, taskID)
	if err != nil || sku == "" {
		return taskID
	}
	return r.ProductName(ctx, sku)
}

// ProductNameByOrderItem chains order-item → SKU → product name. Used for
// pack and verify-packing descriptions.
func (r *Resolver) ProductNameByOrderItem(ctx context.Context, itemID string) string {
	if r == nil || r.store == nil || itemID == "" {
		return itemID
	}
	sku, err := r.store.SKUByOrderItemID(ctx, itemID)
	if err != nil || sku == "" {
		return itemID
	}
	return r.ProductName(ctx, sku)
}
