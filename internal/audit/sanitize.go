// sanitize.go strips secrets from write payloads before they are persisted
// as newValues or metadata details. Redaction is by field name, recursive
// into nested objects and arrays, and applied to a copy so the live request
// body the handler saw is never mutated.
package audit

// sensitiveFields are never stored verbatim anywhere in an audit event.
var sensitiveFields = map[string]struct{}{
	"password":        {},
	"currentPassword": {},
	"newPassword":     {},
	"token":           {},
	"apiKey":          {},
	"secret":          {},
}

const redactedPlaceholder = "[REDACTED]"

// Sanitize returns a deep copy of body with every sensitive field replaced
// by a placeholder. Nil in, nil out.
func Sanitize(body map[string]interface{}) map[string]interface{} {
	if body == nil {
		return nil
	}
	out := make(map[string]interface{}, len(body))
	for k, v := range body {
		if _, secret := sensitiveFields[k]; secret {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

// sanitizeValue recurses through the shapes encoding/json produces for
// untyped JSON: objects, arrays, and arrays nested in arrays.
func sanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return Sanitize(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, elem := range t {
			out[i] = sanitizeValue(elem)
		}
		return out
	}
	return v
}

// NewValues builds the sanitized write-payload snapshot for an event.
// Claim, unclaim, and pack-completion bodies are operational noise for the
// audit trail (a picker ID or a printer preference) and are intentionally
// omitted; everything else stores the redacted body.
func NewValues(action ActionType, body map[string]interface{}) map[string]interface{} {
	switch action {
	case ActionOrderClaimed, ActionOrderUnclaimed, ActionPackCompleted:
		return nil
	}
	return Sanitize(body)
}
