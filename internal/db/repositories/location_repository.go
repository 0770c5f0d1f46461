// location_repository.go implements LocationRepository: bin-location CRUD
// plus the floor-management operations layered on top of bins (putaway,
// slotting moves, zone assignments, cycle counts).
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
)

// LocationRepository handles bin-location and floor-management operations.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Get returns one bin location; (nil, nil) when absent.
func (r *LocationRepository) Get(ctx context.Context, id string) (*models.BinLocation, error) {
	var loc models.BinLocation
	err := r.db.GetContext(ctx, &loc, `SELECT * FROM bin_locations WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// Create inserts a new bin location.
func (r *LocationRepository) Create(ctx context.Context, loc *models.BinLocation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bin_locations (id, zone, aisle, capacity, sku)
		VALUES ($1, $2, $3, $4, $5)
	`, loc.ID, loc.Zone, loc.Aisle, loc.Capacity, loc.SKU)
	return err
}

// Update rewrites a bin location's mutable columns.
func (r *LocationRepository) Update(ctx context.Context, loc *models.BinLocation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bin_locations SET zone = $2, aisle = $3, capacity = $4, sku = $5
		WHERE id = $1
	`, loc.ID, loc.Zone, loc.Aisle, loc.Capacity, loc.SKU)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes an empty bin location.
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bin_locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Putaway places a SKU into an unoccupied bin.
func (r *LocationRepository) Putaway(ctx context.Context, locationID, sku string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bin_locations SET sku = $2 WHERE id = $1 AND sku IS NULL
	`, locationID, sku)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SlottingMove is one bin-to-SKU rebinding in a slotting plan.
type SlottingMove struct {
	LocationID string `json:"locationId"`
	SKU        string `json:"sku"`
}

// ApplySlotting applies a slotting plan atomically; any bin that does not
// exist aborts the whole plan.
func (r *LocationRepository) ApplySlotting(ctx context.Context, moves []SlottingMove) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, move := range moves {
		res, err := tx.ExecContext(ctx, `
			UPDATE bin_locations SET sku = NULLIF($2, '') WHERE id = $1
		`, move.LocationID, move.SKU)
		if err != nil {
			return err
		}
		if err := requireRow(res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AssignZone maps a picker onto a zone; re-assigning the same pair is a
// no-op rather than an error.
func (r *LocationRepository) AssignZone(ctx context.Context, userID, zone string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO zone_assignments (user_id, zone) VALUES ($1, $2)
		ON CONFLICT (user_id, zone) DO NOTHING
	`, userID, zone)
	return err
}

// ReleaseZone removes a picker's zone assignment.
func (r *LocationRepository) ReleaseZone(ctx context.Context, userID, zone string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM zone_assignments WHERE user_id = $1 AND zone = $2
	`, userID, zone)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RebalanceZones clears every assignment in the given zones so supervisors
// can redistribute pickers from a clean slate. Returns how many assignments
// were cleared.
func (r *LocationRepository) RebalanceZones(ctx context.Context, zones []string) (int, error) {
	query, args, err := sqlx.In(`DELETE FROM zone_assignments WHERE zone IN (?)`, zones)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CreateCycleCount opens a count against a bin and returns its
// server-generated identifier. Like wave IDs, count IDs never appear in the
// request; the audit pipeline backfills them from the response.
func (r *LocationRepository) CreateCycleCount(ctx context.Context, locationID, createdBy string) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback() //nolint:errcheck

	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT COUNT(*) + 1 FROM cycle_counts`); err != nil {
		return "", err
	}
	countID := fmt.Sprintf("CC-%d", 1000+seq)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cycle_counts (id, location_id, status, created_by)
		VALUES ($1, $2, 'open', NULLIF($3, '')::uuid)
	`, countID, locationID, createdBy); err != nil {
		return "", err
	}
	return countID, tx.Commit()
}

// CompleteCycleCount records the counted quantity and closes the count.
func (r *LocationRepository) CompleteCycleCount(ctx context.Context, countID string, quantity int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cycle_counts SET status = 'completed', counted_quantity = $2, completed_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, countID, quantity)
	if err != nil {
		return err
	}
	return requireRow(res)
}
