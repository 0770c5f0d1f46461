// Package audit implements the audit event pipeline for the warehouse
// operations backend. Every mutating HTTP request is classified into a
// semantic event taxonomy, its affected resource identified, the record
// enriched with human-readable descriptions (via point lookups against the
// product/order tables), and one immutable audit event persisted per request.
//
// Audit events are intentionally separate from application logs because they
// have different consumers and retention requirements — application logs are
// ephemeral debug output read by on-call engineers, while audit events are
// immutable records read back by the operations dashboard and may be subject
// to retention policies measured in years. The package also supports shipping
// events to external destinations (file, webhook) via the Shipper interface
// so records can reach a SIEM independently of the database.
//
// The pipeline is a side channel: nothing in this package may ever surface a
// failure to the HTTP client. Classification falls through to API_ACCESS,
// enrichment falls back to raw codes, and the orchestrator swallows
// persistence errors.
package audit

import "regexp"

// ActionType is the fine-grained classification of what a request did.
type ActionType string

// Action types produced by the classifier. A handful (ORDER_CREATED,
// ORDER_VIEWED, INVENTORY_VIEWED, SESSION_VIEWED) are defined and carry
// description branches but are never emitted by the classifier — page views
// and order creation are not logged. They are kept so the description
// generators stay total over the enum if the rules are ever re-enabled.
const (
	ActionUserLogin   ActionType = "USER_LOGIN"
	ActionUserLogout  ActionType = "USER_LOGOUT"
	ActionLoginFailed ActionType = "LOGIN_FAILED"

	ActionUserCreated ActionType = "USER_CREATED"
	ActionUserUpdated ActionType = "USER_UPDATED"
	ActionUserDeleted ActionType = "USER_DELETED"

	ActionRoleCreated ActionType = "ROLE_CREATED"
	ActionRoleUpdated ActionType = "ROLE_UPDATED"
	ActionRoleDeleted ActionType = "ROLE_DELETED"
	ActionRoleGranted ActionType = "ROLE_GRANTED"
	ActionRoleRevoked ActionType = "ROLE_REVOKED"

	ActionItemScanned     ActionType = "ITEM_SCANNED"
	ActionPickConfirmed   ActionType = "PICK_CONFIRMED"
	ActionPackingVerified ActionType = "PACKING_VERIFIED"
	ActionPackCompleted   ActionType = "PACK_COMPLETED"

	ActionOrderClaimed   ActionType = "ORDER_CLAIMED"
	ActionOrderUnclaimed ActionType = "ORDER_UNCLAIMED"
	ActionOrderContinued ActionType = "ORDER_CONTINUED"
	ActionOrderUpdated   ActionType = "ORDER_UPDATED"
	ActionOrderCancelled ActionType = "ORDER_CANCELLED"

	ActionWaveCreated   ActionType = "WAVE_CREATED"
	ActionWaveReleased  ActionType = "WAVE_RELEASED"
	ActionWaveCompleted ActionType = "WAVE_COMPLETED"

	ActionSlottingApplied ActionType = "SLOTTING_APPLIED"

	ActionZoneAssigned   ActionType = "ZONE_ASSIGNED"
	ActionZoneReleased   ActionType = "ZONE_RELEASED"
	ActionZoneRebalanced ActionType = "ZONE_REBALANCED"

	ActionPutawayCompleted ActionType = "PUTAWAY_COMPLETED"

	ActionCycleCountCreated   ActionType = "CYCLE_COUNT_CREATED"
	ActionCycleCountCompleted ActionType = "CYCLE_COUNT_COMPLETED"

	ActionLocationCreated ActionType = "LOCATION_CREATED"
	ActionLocationUpdated ActionType = "LOCATION_UPDATED"
	ActionLocationDeleted ActionType = "LOCATION_DELETED"

	ActionInventoryAdjusted ActionType = "INVENTORY_ADJUSTED"

	ActionReportViewed    ActionType = "REPORT_VIEWED"
	ActionExportGenerated ActionType = "EXPORT_GENERATED"

	// Dormant types: defined, described, never classified.
	ActionOrderCreated    ActionType = "ORDER_CREATED"
	ActionOrderViewed     ActionType = "ORDER_VIEWED"
	ActionInventoryViewed ActionType = "INVENTORY_VIEWED"
	ActionSessionViewed   ActionType = "SESSION_VIEWED"

	// ActionAPIAccess is the total-coverage fallback for any mutating
	// request no rule recognises.
	ActionAPIAccess ActionType = "API_ACCESS"
)

// ActionCategory is the coarse grouping used for filtering and reporting.
type ActionCategory string

const (
	CategoryAuthentication   ActionCategory = "AUTHENTICATION"
	CategoryUserManagement   ActionCategory = "USER_MANAGEMENT"
	CategoryDataModification ActionCategory = "DATA_MODIFICATION"
	CategoryDataAccess       ActionCategory = "DATA_ACCESS"
	CategoryConfiguration    ActionCategory = "CONFIGURATION"
	CategoryAPIAccess        ActionCategory = "API_ACCESS"
)

// apiPrefix is stripped from request paths before any classification or
// extraction so route rules match regardless of how the service is mounted.
const apiPrefix = "/api"

// orderIDPattern matches warehouse document numbers: an uppercase letter
// prefix followed by digits, optionally with dash-separated suffixes
// (SO71004, WV-2024 style identifiers qualify; UUIDs and bare numbers do not).
var orderIDPattern = regexp.MustCompile(`[A-Z]+[0-9][0-9-]*`)

// Request is the subset of an HTTP request/response exchange the pipeline
// operates on. The middleware adapts gin's context into this shape so the
// classifier, extractor, and description generators stay framework-free and
// unit-testable without an HTTP server.
type Request struct {
	Method string
	// Path is the URL path as received, including any API prefix.
	Path string
	// Params holds named route parameters (":id", ":orderId", ...).
	Params map[string]string
	// Query holds single-valued query parameters.
	Query map[string]string
	// Body is the decoded JSON request body; nil when absent or not JSON.
	Body map[string]interface{}
}

// cleanPath returns the path with the API prefix stripped. An empty result
// (request to the bare prefix) stays empty; callers treat that as "unknown".
func cleanPath(path string) string {
	if len(path) >= len(apiPrefix) && path[:len(apiPrefix)] == apiPrefix {
		return path[len(apiPrefix):]
	}
	return path
}
