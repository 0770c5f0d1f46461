// classify.go maps (method, path) pairs onto the event taxonomy. The rules
// are an explicit ordered slice evaluated in a single pass; several are
// substring-sensitive (/unclaim must run before /claim, the pick-scan rule
// before any generic order rule) and the ordering contract is pinned by unit
// tests in classify_test.go, not just by this comment. Reordering entries
// silently changes behaviour.
package audit

import (
	"net/http"
	"regexp"
	"strings"
)

// rule pairs a predicate over the cleaned path + method with the event type
// it classifies. First match wins.
type rule struct {
	match  func(method, path string) bool
	action ActionType
}

// Predicate helpers. All operate on the cleaned (prefix-stripped) path.

func pathHas(fragment string) func(string, string) bool {
	return func(_, path string) bool { return strings.Contains(path, fragment) }
}

func pathHasAll(fragments ...string) func(string, string) bool {
	return func(_, path string) bool {
		for _, f := range fragments {
			if !strings.Contains(path, f) {
				return false
			}
		}
		return true
	}
}

func methodIs(method string, inner func(string, string) bool) func(string, string) bool {
	return func(m, path string) bool { return m == method && inner(m, path) }
}

func methodIn(methods []string, inner func(string, string) bool) func(string, string) bool {
	return func(m, path string) bool {
		for _, want := range methods {
			if m == want {
				return inner(m, path)
			}
		}
		return false
	}
}

var writeMethods = []string{http.MethodPut, http.MethodPatch}

// Bare-order-ID heuristics: legacy picking clients address orders without the
// /orders collection prefix, e.g. POST /SO71004/pick. The pattern requires an
// uppercase-letter-prefixed numeric identifier so UUID-keyed routes never
// match.
var (
	bareOrderPick     = regexp.MustCompile(`^/[A-Z]+[0-9][0-9-]*/pick$`)
	bareOrderUndoPick = regexp.MustCompile(`^/[A-Z]+[0-9][0-9-]*/undo-pick$`)
	bareOrderComplete = regexp.MustCompile(`^/[A-Z]+[0-9][0-9-]*/complete$`)
	bareOrder         = regexp.MustCompile(`^/[A-Z]+[0-9][0-9-]*$`)
)

func pathMatches(re *regexp.Regexp) func(string, string) bool {
	return func(_, path string) bool { return re.MatchString(path) }
}

// classifierRules is evaluated top to bottom. Rule families, in priority
// order: auth → user management → role management → role assignment →
// per-order sub-actions → generic order mutation → wave lifecycle →
// slotting → zones → putaway → cycle counts → bin locations → inventory
// adjustment → report viewing → legacy pick-task routes → shipments →
// exports → bare-order-ID heuristics.
var classifierRules = []rule{
	// Authentication.
	{pathHas("/auth/login"), ActionUserLogin},
	{pathHas("/auth/logout"), ActionUserLogout},
	// /auth/me would classify as SESSION_VIEWED but session views are not
	// logged (GETs never reach the classifier in practice).

	// User management, CRUD by method.
	{methodIs(http.MethodPost, pathHas("/users")), ActionUserCreated},
	{methodIn(writeMethods, pathHas("/users")), ActionUserUpdated},
	{methodIs(http.MethodDelete, pathHas("/users")), ActionUserDeleted},

	// Role assignment before role CRUD: /roles/assignments contains /roles.
	{methodIs(http.MethodPost, pathHas("/roles/assignments")), ActionRoleGranted},
	{methodIs(http.MethodDelete, pathHas("/roles/assignments")), ActionRoleRevoked},
	{methodIs(http.MethodPost, pathHas("/roles")), ActionRoleCreated},
	{methodIn(writeMethods, pathHas("/roles")), ActionRoleUpdated},
	{methodIs(http.MethodDelete, pathHas("/roles")), ActionRoleDeleted},

	// Per-order sub-actions. These must precede every generic order rule:
	// POST /orders/SO71004/pick is an item scan during picking, not an
	// order mutation. /undo-pick and /complete both fold into
	// PICK_CONFIRMED and are told apart only in the description text.
	// /unclaim must precede /claim.
	{methodIs(http.MethodPost, pathHasAll("/orders/", "/pick")), ActionItemScanned},
	{pathHasAll("/orders/", "/undo-pick"), ActionPickConfirmed},
	{pathHasAll("/orders/", "/complete"), ActionPickConfirmed},
	{pathHasAll("/orders/", "/verify-packing"), ActionPackingVerified},
	{pathHasAll("/orders/", "/unclaim"), ActionOrderUnclaimed},
	{pathHasAll("/orders/", "/claim"), ActionOrderClaimed},
	{pathHasAll("/orders/", "/continue"), ActionOrderContinued},

	// Generic order mutation. There is no rule for POST /orders: order
	// creation events are not logged. If one is added it maps to
	// ActionOrderCreated.
	{pathHasAll("/orders", "/cancel"), ActionOrderCancelled},
	{methodIs(http.MethodDelete, pathHas("/orders")), ActionOrderCancelled},
	{methodIn(writeMethods, pathHas("/orders")), ActionOrderUpdated},

	// Wave lifecycle; release/complete before create so POST
	// /waves/W100/release never reads as creation.
	{pathHasAll("/waves", "/release"), ActionWaveReleased},
	{pathHasAll("/waves", "/complete"), ActionWaveCompleted},
	{methodIs(http.MethodPost, pathHas("/waves")), ActionWaveCreated},

	// Slotting implementation.
	{pathHasAll("/slotting", "/apply"), ActionSlottingApplied},
	{pathHasAll("/slotting", "/implement"), ActionSlottingApplied},

	// Zone management.
	{pathHasAll("/zones", "/assign"), ActionZoneAssigned},
	{pathHasAll("/zones", "/release"), ActionZoneReleased},
	{pathHasAll("/zones", "/rebalance"), ActionZoneRebalanced},

	// Putaway.
	{pathHas("/putaway"), ActionPutawayCompleted},

	// Cycle counts; completion before creation.
	{pathHasAll("/cycle-counts", "/complete"), ActionCycleCountCompleted},
	{methodIs(http.MethodPost, pathHas("/cycle-counts")), ActionCycleCountCreated},

	// Bin locations, CRUD by method.
	{methodIs(http.MethodPost, pathHas("/locations")), ActionLocationCreated},
	{methodIn(writeMethods, pathHas("/locations")), ActionLocationUpdated},
	{methodIs(http.MethodDelete, pathHas("/locations")), ActionLocationDeleted},

	// Inventory adjustment.
	{pathHasAll("/inventory", "/adjust"), ActionInventoryAdjusted},

	// Metrics/report viewing (effectively dormant: reads are excluded, but
	// report generation POSTs land here).
	{pathHas("/reports"), ActionReportViewed},

	// Legacy pick-task routes used by handheld scanner firmware.
	{pathHasAll("/pick-tasks", "/complete"), ActionPickConfirmed},
	{methodIs(http.MethodPost, pathHas("/pick-tasks")), ActionPickConfirmed},

	// Shipment creation is the pack station's terminal action.
	{methodIs(http.MethodPost, pathHas("/shipments")), ActionPackCompleted},

	// Exports.
	{pathHas("/export"), ActionExportGenerated},

	// Bare-order-ID heuristics, most specific first.
	{methodIs(http.MethodPost, pathMatches(bareOrderPick)), ActionItemScanned},
	{pathMatches(bareOrderUndoPick), ActionPickConfirmed},
	{pathMatches(bareOrderComplete), ActionPickConfirmed},
	{pathMatches(bareOrder), ActionOrderUpdated},
}

// Classify resolves the event type for a mutating request. It never fails:
// anything no rule recognises is generic API access.
func Classify(method, path string) ActionType {
	p := cleanPath(path)
	for _, r := range classifierRules {
		if r.match(method, p) {
			return r.action
		}
	}
	return ActionAPIAccess
}

// Categorize derives the coarse category. This is an independent second pass
// over the cleaned path, not a lookup from the event type, so a path that
// classifies as API_ACCESS can still land in a meaningful category.
func Categorize(path string) ActionCategory {
	p := cleanPath(path)
	switch {
	case strings.Contains(p, "/auth/"):
		return CategoryAuthentication
	case strings.Contains(p, "/users") || strings.Contains(p, "/roles"):
		return CategoryUserManagement
	case strings.Contains(p, "/export") || strings.Contains(p, "/reports") || strings.Contains(p, "/metrics"):
		return CategoryDataAccess
	case strings.Contains(p, "/orders") || strings.Contains(p, "/inventory") ||
		strings.Contains(p, "/picks") || strings.Contains(p, "/pick-tasks") ||
		strings.Contains(p, "/packs") || strings.Contains(p, "/shipments") ||
		strings.Contains(p, "/waves") || strings.Contains(p, "/putaway") ||
		strings.Contains(p, "/cycle-counts"):
		return CategoryDataModification
	case strings.Contains(p, "/locations") || strings.Contains(p, "/zones") ||
		strings.Contains(p, "/slotting") || strings.Contains(p, "/settings"):
		return CategoryConfiguration
	default:
		return CategoryAPIAccess
	}
}
