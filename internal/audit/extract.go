// extract.go resolves the best-effort identity of the resource a request
// acted on. Extraction is a fixed priority chain over the request; a separate
// response-side fallback handles identifiers that only exist after the
// handler ran (server-generated wave and cycle-count IDs).
package audit

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Named route parameters consulted first, in order.
var paramNames = []string{"id", "orderId", "userId", "sku", "locationId", "roleId"}

// Query parameters consulted after path-based extraction, in order.
var queryNames = []string{"id", "order_id", "user_id", "sku", "location_id"}

// Path regexes for order-ID-shaped segments, most specific first.
var (
	ordersSegmentID = regexp.MustCompile(`/orders/([A-Z]+[0-9][0-9-]*)`)
	pickSegmentID   = regexp.MustCompile(`^/([A-Z]+[0-9][0-9-]*)/(?:undo-)?pick`)
	leadingID       = regexp.MustCompile(`^/([A-Z]+[0-9][0-9-]*)(?:/|$)`)
)

// ResourceType derives the coarse resource name from the first path segment
// after the API prefix; "unknown" when the path is empty.
func ResourceType(path string) string {
	p := strings.TrimPrefix(cleanPath(path), "/")
	if p == "" {
		return "unknown"
	}
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

// ResourceID resolves the identifier of the affected entity. Priority:
// named route params → order-ID regex on the cleaned path → query params →
// request body orderId (shipment-creation style calls carry the order there).
// Returns "" when nothing matches.
func ResourceID(req Request) string {
	for _, name := range paramNames {
		if v := req.Params[name]; v != "" {
			return v
		}
	}

	p := cleanPath(req.Path)
	for _, re := range []*regexp.Regexp{ordersSegmentID, pickSegmentID, leadingID} {
		if m := re.FindStringSubmatch(p); m != nil {
			return m[1]
		}
	}

	for _, name := range queryNames {
		if v := req.Query[name]; v != "" {
			return v
		}
	}

	if v, ok := req.Body["orderId"].(string); ok && v != "" {
		return v
	}
	return ""
}

// ResourceIDFromResponse backfills identifiers the server generated during
// the request, which by definition cannot appear in the request itself. Only
// creation-style events have such a fallback; everything else returns "".
// Anything that is not the expected JSON envelope yields "".
func ResourceIDFromResponse(action ActionType, responseBody []byte) string {
	var field string
	switch action {
	case ActionWaveCreated:
		field = "waveId"
	case ActionCycleCountCreated:
		field = "countId"
	default:
		return ""
	}

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(responseBody, &envelope); err != nil {
		return ""
	}
	if v, ok := envelope.Data[field].(string); ok {
		return v
	}
	return ""
}
