// audit_repository.go implements AuditRepository, the persistence sink of the
// audit pipeline plus the filtered read queries behind the admin audit API.
// Inserts are append-only; there is no update or delete path.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
)

// AuditRepository handles audit event database operations.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters contains the optional filters for querying audit events.
type AuditFilters struct {
	UserID         *string
	ActionType     *string
	ActionCategory *string
	ResourceType   *string
	ResourceID     *string
	StartDate      *time.Time
	EndDate        *time.Time
}

// marshalJSONB marshals one of the JSONB maps, preserving NULL for nil maps.
func marshalJSONB(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Log persists one audit event. The ID and timestamp are assigned here so
// callers cannot accidentally reuse them; this is the single write path into
// the audit table.
func (r *AuditRepository) Log(ctx context.Context, event *models.AuditEvent) error {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now()

	metadataJSON, err := marshalJSONB(event.Metadata)
	if err != nil {
		return err
	}
	oldJSON, err := marshalJSONB(event.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := marshalJSONB(event.NewValues)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_events (
			id, user_id, user_email, user_role,
			action_type, action_category, action_description,
			resource_type, resource_id, ip_address, user_agent,
			metadata, old_values, new_values, correlation_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.UserEmail,
		event.UserRole,
		event.ActionType,
		event.ActionCategory,
		event.ActionDescription,
		event.ResourceType,
		event.ResourceID,
		event.IPAddress,
		event.UserAgent,
		metadataJSON,
		oldJSON,
		newJSON,
		event.CorrelationID,
		event.CreatedAt,
	)
	return err
}

const auditSelectColumns = `
	id, user_id, user_email, user_role,
	action_type, action_category, action_description,
	resource_type, resource_id, ip_address, user_agent,
	metadata, old_values, new_values, correlation_id, created_at
`

// List retrieves audit events with optional filters and pagination, newest
// first, along with the unpaginated total for the dashboard's pager.
func (r *AuditRepository) List(ctx context.Context, filters AuditFilters, limit, offset int) ([]*models.AuditEvent, int, error) {
	countQuery := `SELECT COUNT(*) FROM audit_events WHERE 1=1`
	query := `SELECT ` + auditSelectColumns + ` FROM audit_events WHERE 1=1`

	args := make([]interface{}, 0)
	paramIndex := 1

	addFilter := func(clause string, value interface{}) {
		cond := fmt.Sprintf(clause, paramIndex)
		countQuery += cond
		query += cond
		args = append(args, value)
		paramIndex++
	}

	if filters.UserID != nil {
		addFilter(` AND user_id = $%d`, *filters.UserID)
	}
	if filters.ActionType != nil {
		addFilter(` AND action_type = $%d`, *filters.ActionType)
	}
	if filters.ActionCategory != nil {
		addFilter(` AND action_category = $%d`, *filters.ActionCategory)
	}
	if filters.ResourceType != nil {
		addFilter(` AND resource_type = $%d`, *filters.ResourceType)
	}
	if filters.ResourceID != nil {
		addFilter(` AND resource_id = $%d`, *filters.ResourceID)
	}
	if filters.StartDate != nil {
		addFilter(` AND created_at >= $%d`, *filters.StartDate)
	}
	if filters.EndDate != nil {
		addFilter(` AND created_at <= $%d`, *filters.EndDate)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*models.AuditEvent, 0)
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	return events, total, rows.Err()
}

// Get retrieves a single audit event by ID; (nil, nil) when not found.
func (r *AuditRepository) Get(ctx context.Context, eventID string) (*models.AuditEvent, error) {
	query := `SELECT ` + auditSelectColumns + ` FROM audit_events WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, eventID)
	event, err := scanAuditEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditEvent(row rowScanner) (*models.AuditEvent, error) {
	event := &models.AuditEvent{}
	var metadataJSON, oldJSON, newJSON []byte

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.UserEmail,
		&event.UserRole,
		&event.ActionType,
		&event.ActionCategory,
		&event.ActionDescription,
		&event.ResourceType,
		&event.ResourceID,
		&event.IPAddress,
		&event.UserAgent,
		&metadataJSON,
		&oldJSON,
		&newJSON,
		&event.CorrelationID,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		raw []byte
		dst *map[string]interface{}
	}{
		{metadataJSON, &event.Metadata},
		{oldJSON, &event.OldValues},
		{newJSON, &event.NewValues},
	} {
		if pair.raw != nil {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, err
			}
		}
	}
	return event, nil
}
