// order_repository.go implements OrderRepository: the picking-flow mutations
// (claim, unclaim, pick, complete, cancel) and wave lifecycle operations the
// operations API performs. Status transitions are guarded in SQL so a stale
// client cannot, for example, claim an already-claimed order.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
)

// ErrConflict is returned when a guarded transition matched no row: the
// entity is missing or in a state that forbids the transition.
var ErrConflict = fmt.Errorf("conflicting state transition")

// OrderRepository handles order, pick-task, and wave database operations.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Get returns one order; (nil, nil) when absent.
func (r *OrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Claim assigns an unclaimed pending order to a picker.
func (r *OrderRepository) Claim(ctx context.Context, orderID, pickerID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET assigned_picker = $2, status = 'picking', updated_at = NOW()
		WHERE id = $1 AND assigned_picker IS NULL AND status IN ('pending', 'released')
	`, orderID, pickerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Unclaim releases an order back to the queue. Only the assigned picker's
// claim is released.
func (r *OrderRepository) Unclaim(ctx context.Context, orderID, pickerID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET assigned_picker = NULL, status = 'pending', updated_at = NOW()
		WHERE id = $1 AND assigned_picker = $2
	`, orderID, pickerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkPicked records a scan against the order's open pick task for the SKU.
func (r *OrderRepository) MarkPicked(ctx context.Context, orderID, sku string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pick_tasks SET status = 'picked', picked_at = NOW()
		WHERE id = (
			SELECT id FROM pick_tasks
			WHERE order_id = $1 AND sku = $2 AND status = 'open'
			LIMIT 1
		)
	`, orderID, sku)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UndoPick reopens a picked task.
func (r *OrderRepository) UndoPick(ctx context.Context, pickTaskID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pick_tasks SET status = 'open', picked_at = NULL
		WHERE id = $1 AND status = 'picked'
	`, pickTaskID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetStatus transitions an order to the given status unconditionally. Used
// for complete/continue/verify-packing style transitions where the guard is
// in the handler.
func (r *OrderRepository) SetStatus(ctx context.Context, orderID, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1
	`, orderID, status)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Cancel marks an order cancelled; already-shipped orders are not
// cancellable.
func (r *OrderRepository) Cancel(ctx context.Context, orderID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('shipped', 'cancelled')
	`, orderID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CreateWave creates a wave over the given pending orders and returns its
// server-generated identifier (a W-prefixed sequence value). The ID never
// appears in the request, which is why the audit pipeline backfills it from
// the response.
func (r *OrderRepository) CreateWave(ctx context.Context, createdBy string, orderIDs []string) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback() //nolint:errcheck

	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT COUNT(*) + 1 FROM waves`); err != nil {
		return "", err
	}
	waveID := fmt.Sprintf("W%d", 100+seq)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO waves (id, status, created_by, created_at) VALUES ($1, 'created', $2, $3)
	`, waveID, createdBy, time.Now()); err != nil {
		return "", err
	}

	for _, orderID := range orderIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET wave_id = $2, updated_at = NOW() WHERE id = $1
		`, orderID, waveID); err != nil {
			return "", err
		}
	}
	return waveID, tx.Commit()
}

// SetWaveStatus transitions a wave ('released' also stamps released_at).
func (r *OrderRepository) SetWaveStatus(ctx context.Context, waveID, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE waves SET status = $2,
			released_at = CASE WHEN $2 = 'released' THEN NOW() ELSE released_at END
		WHERE id = $1
	`, waveID, status)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AdjustLocationQuantity applies a signed inventory adjustment to a bin.
func (r *OrderRepository) AdjustLocationQuantity(ctx context.Context, locationID string, delta int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bin_locations SET capacity = capacity + $2 WHERE id = $1
	`, locationID, delta)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CountByStatus returns order counts grouped by status, used for export
// manifests.
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
