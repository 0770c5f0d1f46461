// Package models - audit_event.go defines the AuditEvent model: one immutable
// record per classified mutating request, capturing actor, action taxonomy,
// affected resource, client metadata, and the sanitized write payload.
package models

import "time"

// AuditEvent represents one persisted audit record. It is write-once: the
// pipeline never mutates or deletes rows after insertion.
type AuditEvent struct {
	ID string `json:"id"`
	// Actor identity; all nullable because pre-authentication events
	// (login attempts) have no authenticated user.
	UserID    *string `json:"user_id,omitempty"`
	UserEmail *string `json:"user_email,omitempty"`
	UserRole  *string `json:"user_role,omitempty"`
	// ActionType is the fine-grained event classification ("ITEM_SCANNED",
	// "ORDER_CLAIMED", "API_ACCESS" fallback).
	ActionType string `json:"action_type"`
	// ActionCategory is the coarse grouping ("AUTHENTICATION",
	// "DATA_MODIFICATION", ...).
	ActionCategory string `json:"action_category"`
	// ActionDescription is the generated third-person sentence.
	ActionDescription string `json:"action_description"`
	// ResourceType is the first path segment after the API prefix;
	// "unknown" when the path is empty.
	ResourceType string `json:"resource_type"`
	// ResourceID is the best-effort identifier of the affected entity.
	ResourceID *string `json:"resource_id,omitempty"`
	IPAddress  *string `json:"ip_address,omitempty"`
	UserAgent  *string `json:"user_agent,omitempty"`
	// Metadata holds summary/details/technical/error sub-objects (JSONB).
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// OldValues is always null in this pipeline; no before-image is
	// captured.
	OldValues map[string]interface{} `json:"old_values,omitempty"`
	// NewValues is the sanitized, event-specific snapshot of the write
	// payload; nil for event types where the body is noise.
	NewValues map[string]interface{} `json:"new_values,omitempty"`
	// CorrelationID is reserved for future cross-request tracing; always
	// null in this flow.
	CorrelationID *string   `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
