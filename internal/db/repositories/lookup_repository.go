// lookup_repository.go implements LookupRepository, the read-only point
// queries the audit pipeline uses to enrich event descriptions. It satisfies
// audit.LookupStore. Misses are ("", nil), never an error: the pipeline
// treats the two identically, but keeping not-found out of the error path
// makes the repository tests honest about which is which.
package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// LookupRepository resolves opaque warehouse codes to display data.
type LookupRepository struct {
	db *sqlx.DB
}

// NewLookupRepository creates a new LookupRepository.
func NewLookupRepository(db *sqlx.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// ProductNameBySKUOrBarcode resolves a SKU or scanned barcode to the
// product's display name.
func (r *LookupRepository) ProductNameBySKUOrBarcode(ctx context.Context, code string) (string, error) {
	var name string
	query := `SELECT name FROM products WHERE sku = $1 OR barcode = $1 LIMIT 1`
	err := r.db.GetContext(ctx, &name, query, code)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return name, err
}

// SKUByPickTaskID resolves a pick task to the SKU it picks.
func (r *LookupRepository) SKUByPickTaskID(ctx context.Context, id string) (string, error) {
	var sku string
	query := `SELECT sku FROM pick_tasks WHERE id = $1`
	err := r.db.GetContext(ctx, &sku, query, id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return sku, err
}

// SKUByOrderItemID resolves an order line to its SKU.
func (r *LookupRepository) SKUByOrderItemID(ctx context.Context, id string) (string, error) {
	var sku string
	query := `SELECT sku FROM order_items WHERE id = $1`
	err := r.db.GetContext(ctx, &sku, query, id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return sku, err
}
