// describe.go generates the human-readable text that makes audit events
// legible on the operations dashboard. There is one generator with a voice
// parameter: the actor-centric summary ("jo@acme.test confirmed order list
// for order SO71004") and the third-person description ("Confirmed Order
// List for order SO71004") previously drifted apart as near-duplicate
// switches, so both voices now share every branch. Both are total over the
// ActionType enum via a generic fallback.
package audit

import (
	"context"
	"fmt"
	"strings"
)

// EventInfo carries everything the generator needs about one classified
// request.
type EventInfo struct {
	Req        Request
	Action     ActionType
	ResourceID string
	// ActorEmail is the authenticated user's email, or the email taken
	// from the request body for pre-auth events. Empty for anonymous
	// traffic.
	ActorEmail string
}

type voice int

const (
	voiceActor voice = iota
	voiceThird
)

// Summary renders the actor-centric one-liner stored in metadata.summary.
func (r *Resolver) Summary(ctx context.Context, evt EventInfo) string {
	return r.describe(ctx, voiceActor, evt)
}

// Describe renders the third-person sentence stored as actionDescription.
func (r *Resolver) Describe(ctx context.Context, evt EventInfo) string {
	return r.describe(ctx, voiceThird, evt)
}

// actor names the acting party for the actor voice; anonymous traffic is
// attributed to "anonymous" rather than an empty string so summaries stay
// grammatical.
func (evt EventInfo) actor() string {
	if evt.ActorEmail != "" {
		return evt.ActorEmail
	}
	return "anonymous"
}

// orderRef re-derives the order document number from the path segments. Some
// event types (item scan, pick confirm, pack complete) address sub-resources
// whose extracted ResourceID may be a task or item ID; the order number in
// the path is the identity operators recognise.
func (evt EventInfo) orderRef() string {
	for _, seg := range strings.Split(cleanPath(evt.Req.Path), "/") {
		if seg != "" && orderIDPattern.FindString(seg) == seg {
			return seg
		}
	}
	if evt.ResourceID != "" {
		return evt.ResourceID
	}
	return "unknown"
}

// bodyString fetches a string field from the request body.
func (evt EventInfo) bodyString(key string) string {
	v, _ := evt.Req.Body[key].(string)
	return v
}

// isUndo reports whether a PICK_CONFIRMED event came from the undo-pick
// route; undo is folded into the same event type and told apart only here.
func (evt EventInfo) isUndo() bool {
	return strings.Contains(evt.Req.Path, "/undo-pick")
}

// phrase renders the two voices of one sentence: "confirmed picking" /
// "Confirmed Picking" followed by the shared tail.
func phrase(v voice, evt EventInfo, actorVerb, thirdVerb, tail string) string {
	if v == voiceActor {
		if tail == "" {
			return fmt.Sprintf("%s %s", evt.actor(), actorVerb)
		}
		return fmt.Sprintf("%s %s %s", evt.actor(), actorVerb, tail)
	}
	if tail == "" {
		return thirdVerb
	}
	return fmt.Sprintf("%s %s", thirdVerb, tail)
}

func (r *Resolver) describe(ctx context.Context, v voice, evt EventInfo) string {
	switch evt.Action {
	case ActionUserLogin:
		return phrase(v, evt, "logged in", "User logged in", "")
	case ActionUserLogout:
		return phrase(v, evt, "logged out", "User logged out", "")
	case ActionLoginFailed:
		return phrase(v, evt, "failed to log in", "Failed login attempt", "")

	case ActionUserCreated:
		return phrase(v, evt, "created user", "Created user", evt.ResourceID)
	case ActionUserUpdated:
		return phrase(v, evt, "updated user", "Updated user", evt.ResourceID)
	case ActionUserDeleted:
		return phrase(v, evt, "deleted user", "Deleted user", evt.ResourceID)

	case ActionRoleCreated:
		return phrase(v, evt, "created role", "Created role", evt.ResourceID)
	case ActionRoleUpdated:
		return phrase(v, evt, "updated role", "Updated role", evt.ResourceID)
	case ActionRoleDeleted:
		return phrase(v, evt, "deleted role", "Deleted role", evt.ResourceID)
	case ActionRoleGranted:
		return phrase(v, evt, "granted role to user", "Granted role to user", evt.bodyString("userId"))
	case ActionRoleRevoked:
		return phrase(v, evt, "revoked role from user", "Revoked role from user", evt.bodyString("userId"))

	case ActionItemScanned:
		code := evt.bodyString("sku")
		if code == "" {
			code = evt.bodyString("barcode")
		}
		name := r.ProductName(ctx, code)
		if name == "" {
			name = "item"
		}
		tail := fmt.Sprintf("%s for order %s", name, evt.orderRef())
		return phrase(v, evt, "scanned", "Scanned", tail)

	case ActionPickConfirmed:
		if evt.isUndo() {
			name := r.ProductNameByPickTask(ctx, evt.bodyString("pickTaskId"))
			if name == "" {
				name = "pick"
			}
			tail := fmt.Sprintf("of %s for order %s", name, evt.orderRef())
			return phrase(v, evt, "undid pick", "Undid pick", tail)
		}
		tail := fmt.Sprintf("for order %s", evt.orderRef())
		return phrase(v, evt, "confirmed order list", "Confirmed Order List", tail)

	case ActionPackingVerified:
		name := r.ProductNameByOrderItem(ctx, evt.bodyString("orderItemId"))
		if name == "" {
			name = "items"
		}
		tail := fmt.Sprintf("of %s for order %s", name, evt.orderRef())
		return phrase(v, evt, "verified packing", "Verified packing", tail)

	case ActionPackCompleted:
		tail := fmt.Sprintf("for order %s", evt.orderRef())
		if name := r.ProductNameByOrderItem(ctx, evt.bodyString("orderItemId")); name != "" {
			tail = fmt.Sprintf("of %s for order %s", name, evt.orderRef())
		}
		return phrase(v, evt, "completed packing", "Completed packing", tail)

	case ActionOrderClaimed:
		return phrase(v, evt, "claimed order", "Claimed order", evt.orderRef())
	case ActionOrderUnclaimed:
		return phrase(v, evt, "unclaimed order", "Unclaimed order", evt.orderRef())
	case ActionOrderContinued:
		return phrase(v, evt, "resumed picking order", "Resumed picking order", evt.orderRef())
	case ActionOrderUpdated:
		return phrase(v, evt, "updated order", "Updated order", evt.orderRef())
	case ActionOrderCancelled:
		return phrase(v, evt, "cancelled order", "Cancelled order", evt.orderRef())

	case ActionWaveCreated:
		return phrase(v, evt, "created wave", "Created wave", evt.ResourceID)
	case ActionWaveReleased:
		return phrase(v, evt, "released wave", "Released wave", evt.ResourceID)
	case ActionWaveCompleted:
		return phrase(v, evt, "completed wave", "Completed wave", evt.ResourceID)

	case ActionSlottingApplied:
		return phrase(v, evt, "applied slotting plan", "Applied slotting plan", evt.ResourceID)

	case ActionZoneAssigned:
		return phrase(v, evt, "assigned zone", "Assigned zone", evt.ResourceID)
	case ActionZoneReleased:
		return phrase(v, evt, "released zone", "Released zone", evt.ResourceID)
	case ActionZoneRebalanced:
		return phrase(v, evt, "rebalanced zones", "Rebalanced zones", "")

	case ActionPutawayCompleted:
		return phrase(v, evt, "completed putaway", "Completed putaway", evt.ResourceID)

	case ActionCycleCountCreated:
		return phrase(v, evt, "created cycle count", "Created cycle count", evt.ResourceID)
	case ActionCycleCountCompleted:
		return phrase(v, evt, "completed cycle count", "Completed cycle count", evt.ResourceID)

	case ActionLocationCreated:
		return phrase(v, evt, "created bin location", "Created bin location", evt.ResourceID)
	case ActionLocationUpdated:
		return phrase(v, evt, "updated bin location", "Updated bin location", evt.ResourceID)
	case ActionLocationDeleted:
		return phrase(v, evt, "deleted bin location", "Deleted bin location", evt.ResourceID)

	case ActionInventoryAdjusted:
		sku := evt.bodyString("sku")
		tail := r.ProductName(ctx, sku)
		if tail == "" {
			tail = evt.ResourceID
		}
		return phrase(v, evt, "adjusted inventory for", "Adjusted inventory for", tail)

	case ActionReportViewed:
		return phrase(v, evt, "viewed report", "Viewed report", evt.ResourceID)
	case ActionExportGenerated:
		return phrase(v, evt, "generated export", "Generated export", evt.ResourceID)

	// Dormant branches: kept so the generator stays total if the classifier
	// rules for page views or order creation are ever re-enabled.
	case ActionOrderCreated:
		return phrase(v, evt, "created order", "Created order", evt.orderRef())
	case ActionOrderViewed:
		return phrase(v, evt, "viewed order", "Viewed order", evt.orderRef())
	case ActionInventoryViewed:
		return phrase(v, evt, "viewed inventory", "Viewed inventory", "")
	case ActionSessionViewed:
		return phrase(v, evt, "viewed session", "Viewed session", "")
	}

	// Total-coverage fallback for event types with no explicit branch.
	if v == voiceActor {
		return fmt.Sprintf("%s performed %s", evt.actor(), evt.Action)
	}
	return fmt.Sprintf("%s %s", evt.Req.Method, evt.Req.Path)
}
