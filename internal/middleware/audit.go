// audit.go is the orchestrator of the audit event pipeline: it adapts each
// Gin request/response exchange into the framework-free audit package types,
// runs exclusion → classification → extraction → enrichment → description,
// and persists exactly one event per qualifying request.
//
// Hard invariant: nothing in this file may ever alter or delay the HTTP
// response. Construction runs inside a recover boundary, persistence and
// shipping are fire-and-forget goroutines, and every failure degrades to a
// slog entry plus a Prometheus counter.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/warehouse-ops/warehouse-ops/internal/audit"
	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
	"github.com/warehouse-ops/warehouse-ops/internal/safego"
	"github.com/warehouse-ops/warehouse-ops/internal/telemetry"
)

// auditLoggedKey is the request-scoped flag behind the exactly-one-record
// guarantee. Gin invokes this middleware once per request, but the flag makes
// the guarantee explicit and survives any future refactor that moves
// logRequest onto multiple emission paths.
const auditLoggedKey = "audit_logged"

// Request and response bodies are captured up to these caps; anything larger
// is truncated for the audit record, never for the client.
const (
	maxCapturedRequestBody  = 1 << 20 // 1 MiB
	maxCapturedResponseBody = 64 << 10
)

// persistTimeout bounds the async database write and external shipping so a
// hung sink cannot leak goroutines.
const persistTimeout = 5 * time.Second

// AuditSink persists one audit event. *repositories.AuditRepository is the
// production implementation; tests substitute an in-memory capture.
type AuditSink interface {
	Log(ctx context.Context, event *models.AuditEvent) error
}

// bodyCaptureWriter tees response writes into a bounded buffer so the
// orchestrator can backfill server-generated resource IDs from the response.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) capture(b []byte) {
	if remaining := maxCapturedResponseBody - w.body.Len(); remaining > 0 {
		if len(b) > remaining {
			b = b[:remaining]
		}
		w.body.Write(b)
	}
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.capture(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

// AuditMiddleware logs classified mutating requests to the database only.
func AuditMiddleware(sink AuditSink, resolver *audit.Resolver) gin.HandlerFunc {
	return AuditMiddlewareWithShipper(sink, resolver, nil)
}

// AuditMiddlewareWithShipper logs classified mutating requests to the
// database and ships them to external destinations.
func AuditMiddlewareWithShipper(sink AuditSink, resolver *audit.Resolver, shipper audit.Shipper) gin.HandlerFunc {
	return func(c *gin.Context) {
		// OPTIONS preflights and excluded paths skip all capture work; GETs
		// are rejected inside ShouldExclude.
		if c.Request.Method == http.MethodOptions ||
			audit.ShouldExclude(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		reqBody := captureRequestBody(c)

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		logRequest(c, sink, resolver, shipper, start, reqBody, writer.body.Bytes())
	}
}

// logRequest builds and persists the audit event for one completed exchange.
// It never panics outward and never touches the response.
func logRequest(c *gin.Context, sink AuditSink, resolver *audit.Resolver, shipper audit.Shipper, start time.Time, reqBody map[string]interface{}, respBody []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("audit pipeline panic", "panic", r, "path", c.Request.URL.Path)
			telemetry.AuditWriteFailuresTotal.WithLabelValues("construct").Inc()
		}
	}()

	if c.GetBool(auditLoggedKey) {
		return
	}
	c.Set(auditLoggedKey, true)

	method := c.Request.Method
	path := c.Request.URL.Path
	status := c.Writer.Status()
	duration := time.Since(start)

	req := audit.Request{
		Method: method,
		Path:   path,
		Params: paramsMap(c),
		Query:  queryMap(c),
		Body:   reqBody,
	}

	action := audit.Classify(method, path)
	// A rejected login is its own event type; the classifier cannot tell
	// because it never sees the status code.
	if action == audit.ActionUserLogin && status >= 400 {
		action = audit.ActionLoginFailed
	}
	category := audit.Categorize(path)

	resourceType := audit.ResourceType(path)
	resourceID := audit.ResourceID(req)
	if resourceID == "" {
		resourceID = audit.ResourceIDFromResponse(action, respBody)
	}

	// Actor identity. Pre-auth events (login attempts) have no authenticated
	// user; their email is taken from the request body instead.
	userID := c.GetString(UserIDContextKey)
	userEmail := c.GetString(UserEmailContextKey)
	userRole := c.GetString(UserRoleContextKey)
	isAuthEvent := action == audit.ActionUserLogin ||
		action == audit.ActionUserLogout ||
		action == audit.ActionLoginFailed
	actorEmail := userEmail
	if actorEmail == "" && isAuthEvent {
		actorEmail, _ = reqBody["email"].(string)
	}

	evt := audit.EventInfo{
		Req:        req,
		Action:     action,
		ResourceID: resourceID,
		ActorEmail: actorEmail,
	}

	// Enrichment lookups run serially inside the description generators;
	// c.Request.Context() is still live here because the middleware has not
	// returned yet.
	enrichStart := time.Now()
	summary := resolver.Summary(c.Request.Context(), evt)
	description := resolver.Describe(c.Request.Context(), evt)
	details := buildDetails(c.Request.Context(), resolver, evt)
	telemetry.AuditEnrichmentDuration.Observe(time.Since(enrichStart).Seconds())

	metadata := map[string]interface{}{
		"summary": summary,
	}
	if len(details) > 0 {
		metadata["details"] = details
	}
	if !isAuthEvent {
		metadata["technical"] = map[string]interface{}{
			"method":     method,
			"endpoint":   path,
			"durationMs": duration.Milliseconds(),
			"statusCode": status,
		}
	}
	if status >= 400 {
		metadata["error"] = errorText(status, respBody)
	}

	ip := clientIP(c)
	userAgent := c.Request.UserAgent()

	event := &models.AuditEvent{
		UserID:            nilIfEmpty(userID),
		UserEmail:         nilIfEmpty(actorEmail),
		UserRole:          nilIfEmpty(userRole),
		ActionType:        string(action),
		ActionCategory:    string(category),
		ActionDescription: description,
		ResourceType:      resourceType,
		ResourceID:        nilIfEmpty(resourceID),
		IPAddress:         nilIfEmpty(ip),
		UserAgent:         nilIfEmpty(userAgent),
		Metadata:          metadata,
		NewValues:         audit.NewValues(action, reqBody),
	}

	// Persistence and shipping are fire-and-forget: the response has already
	// been written and must never wait on the sink.
	safego.Go("audit write", func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if sink != nil {
			if err := sink.Log(ctx, event); err != nil {
				slog.Error("failed to persist audit event",
					"error", err, "action_type", event.ActionType, "path", path)
				telemetry.AuditWriteFailuresTotal.WithLabelValues("database").Inc()
			} else {
				telemetry.AuditEventsTotal.WithLabelValues(event.ActionType, event.ActionCategory).Inc()
			}
		}

		if shipper != nil {
			entry := &audit.Entry{
				Timestamp:      time.Now(),
				ActionType:     event.ActionType,
				ActionCategory: event.ActionCategory,
				Description:    event.ActionDescription,
				UserID:         userID,
				UserEmail:      actorEmail,
				UserRole:       userRole,
				ResourceType:   event.ResourceType,
				ResourceID:     resourceID,
				IPAddress:      ip,
				StatusCode:     status,
				Metadata:       metadata,
				NewValues:      event.NewValues,
			}
			if err := shipper.Ship(ctx, entry); err != nil {
				telemetry.AuditWriteFailuresTotal.WithLabelValues("shipper").Inc()
			}
		}
	})
}

// buildDetails assembles the event-specific fact bag stored under
// metadata.details. Fields already redacted or omitted from newValues are
// never reintroduced here; the bag only carries identifying codes and their
// looked-up display names.
func buildDetails(ctx context.Context, resolver *audit.Resolver, evt audit.EventInfo) map[string]interface{} {
	details := make(map[string]interface{})
	body := func(key string) string {
		v, _ := evt.Req.Body[key].(string)
		return v
	}

	switch evt.Action {
	case audit.ActionItemScanned:
		code := body("sku")
		if code == "" {
			code = body("barcode")
		}
		if code != "" {
			details["sku"] = code
			details["productName"] = resolver.ProductName(ctx, code)
		}
	case audit.ActionPickConfirmed:
		if taskID := body("pickTaskId"); taskID != "" {
			details["pickTaskId"] = taskID
			details["productName"] = resolver.ProductNameByPickTask(ctx, taskID)
		}
	case audit.ActionPackingVerified, audit.ActionPackCompleted:
		if itemID := body("orderItemId"); itemID != "" {
			details["orderItemId"] = itemID
			details["productName"] = resolver.ProductNameByOrderItem(ctx, itemID)
		}
	case audit.ActionInventoryAdjusted:
		if sku := body("sku"); sku != "" {
			details["sku"] = sku
			details["productName"] = resolver.ProductName(ctx, sku)
		}
		if qty, ok := evt.Req.Body["adjustment"]; ok {
			details["adjustment"] = qty
		}
	case audit.ActionRoleGranted, audit.ActionRoleRevoked:
		if target := body("userId"); target != "" {
			details["targetUserId"] = target
		}
	}

	if evt.ResourceID != "" {
		details["resourceId"] = evt.ResourceID
	}
	return details
}

// captureRequestBody reads and restores the request body, returning its JSON
// object form or nil. The handler sees an untouched body either way.
func captureRequestBody(c *gin.Context) map[string]interface{} {
	if c.Request.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCapturedRequestBody))
	if err != nil {
		return nil
	}
	// Stitch the captured prefix back onto whatever the limit left unread so
	// oversized bodies reach the handler whole.
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), c.Request.Body))

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return body
}

// paramsMap converts gin's route parameters to the pipeline's map shape.
func paramsMap(c *gin.Context) map[string]string {
	if len(c.Params) == 0 {
		return nil
	}
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return params
}

// queryMap flattens the query string to first values.
func queryMap(c *gin.Context) map[string]string {
	values := c.Request.URL.Query()
	if len(values) == 0 {
		return nil
	}
	query := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	return query
}

// clientIP resolves the caller's address with an explicit precedence chain:
// first hop of X-Forwarded-For, then X-Real-Ip, then the socket address.
// This intentionally bypasses gin's trusted-proxy machinery so the recorded
// value is deterministic regardless of router configuration.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if rip := strings.TrimSpace(c.GetHeader("X-Real-Ip")); rip != "" {
		return rip
	}
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.Request.RemoteAddr
}

// errorText prefers the handler's own error message over the generic status
// text when the response is a JSON error envelope.
func errorText(status int, respBody []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return http.StatusText(status)
}

// nilIfEmpty maps "" to NULL for the nullable audit columns.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
